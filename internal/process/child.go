package process

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// State is the lifecycle state of a child process.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateExited
	StateCrashed
	StateStopped
	// StateFailed means the child could no longer be observed. It has
	// been killed and collected where possible.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateCrashed:
		return "crashed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Outcome describes how a child terminated.
type Outcome struct {
	// Crashed is set when the child did not terminate through its own exit path.
	Crashed  bool
	ExitCode int
	Reason   string
}

// Child is a spawned process. Its OS handle is released exactly once, when
// the child is reaped.
type Child struct {
	Path    string
	Args    []string
	Started time.Time

	process  *os.Process
	terminal *os.File

	reapMu    sync.Mutex
	reapDone  bool
	reapState *os.ProcessState
	reapErr   error

	closeOnce sync.Once
	closeErr  error
}

func (c *Child) Pid() int {
	if c == nil || c.process == nil {
		return -1
	}
	return c.process.Pid
}

// Terminal returns the controlling side of the child's pseudo-terminal, or
// nil when the child was not started with one.
func (c *Child) Terminal() *os.File {
	if c == nil {
		return nil
	}
	return c.terminal
}

// Runtime reports how long the child has existed.
func (c *Child) Runtime() time.Duration {
	if c == nil || c.Started.IsZero() {
		return 0
	}
	return time.Since(c.Started)
}

func (c *Child) reaped() bool {
	c.reapMu.Lock()
	defer c.reapMu.Unlock()
	return c.reapDone
}

// reap collects the child's exit status and releases its process handle.
// It blocks until the child has terminated.
func (c *Child) reap() (*os.ProcessState, error) {
	c.reapMu.Lock()
	defer c.reapMu.Unlock()
	if c.reapDone {
		return c.reapState, c.reapErr
	}
	c.reapState, c.reapErr = c.process.Wait()
	if c.reapErr != nil && !errors.Is(c.reapErr, os.ErrProcessDone) {
		_ = c.process.Release()
	}
	c.reapDone = true
	return c.reapState, c.reapErr
}

// Close releases the stream resources owned by the child. It does not
// signal or reap the process.
func (c *Child) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if c.terminal != nil {
			if err := c.terminal.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}
