package watcher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"sysobserve/internal/logging"
	"sysobserve/internal/metrics"
)

const (
	defaultCoalesce   = 50 * time.Millisecond
	defaultMaxWatches = 1024
)

var (
	ErrAlreadyWatching    = errors.New("directory monitor already watching")
	ErrNotDirectory       = errors.New("not a directory")
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
)

// State is the lifecycle state of a DirectoryMonitor.
type State int

const (
	StateIdle State = iota
	StateWatching
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Options controls DirectoryMonitor behavior.
type Options struct {
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// Coalesce is the quiet window that merges bursts into one callback.
	// Zero selects the default; negative disables coalescing.
	Coalesce time.Duration
	// Recursive also watches nested directories, including ones created
	// while the monitor runs.
	Recursive bool
	// MaxWatches bounds the number of directories a recursive watch adds.
	MaxWatches int
	// OnError is invoked once if the notification source fails.
	OnError func(err error)
}

// MonitorError reports a failure of the notification source. The watch that
// produced it has ended and will not be retried.
type MonitorError struct {
	Path string
	Err  error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}

// DirectoryMonitor watches one directory at a time. The zero value is ready
// to use with default options.
type DirectoryMonitor struct {
	options Options

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mutex  sync.Mutex
	state  State
	path   string
	active *watch
}
