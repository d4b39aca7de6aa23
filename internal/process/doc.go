// Package process launches child processes and observes their termination.
//
// Each observed child gets one goroutine blocked in a platform wait primitive
// (pidfd + eventfd under poll(2) on Linux, kqueue on the BSDs and macOS,
// WaitForMultipleObjects on Windows). The primitive also waits on a wake
// source, so Cancel interrupts the blocked call instead of abandoning it.
//
// Termination is classified as a normal exit (the child returned a status)
// or a crash (signal on Unix, NTSTATUS exception code on Windows). Exactly one
// of the two callbacks fires per child unless the monitor is cancelled first.
// Callbacks run on the monitor goroutine and must not call Stop or Cancel on
// the observer that invoked them.
package process
