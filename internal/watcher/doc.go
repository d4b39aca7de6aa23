// Package watcher provides DirectoryMonitor, which reports that the direct
// entries of a directory changed.
//
// Each active monitor owns one goroutine selecting over the fsnotify event
// and error channels and a stop channel, so Stop always wakes it. Bursts of
// changes are coalesced: the first event opens a quiet window, later events
// extend it, and one callback fires when the window closes. A negative
// window delivers one callback per event instead. Callbacks receive no
// details about what changed.
package watcher
