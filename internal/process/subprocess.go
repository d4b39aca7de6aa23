package process

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"sysobserve/internal/logging"
	"sysobserve/internal/metrics"
)

const defaultStopGrace = 2 * time.Second

// Options configures a Subprocess.
type Options struct {
	Logger   *logging.Logger
	Metrics  *metrics.Registry
	Registry *Registry
	// StopGrace is how long Stop waits after SIGTERM before SIGKILL.
	StopGrace time.Duration
}

// StartOptions describes one child launch.
type StartOptions struct {
	Launch  LaunchOptions
	OnExit  func(code int)
	OnCrash func(reason string)
	OnError func(err error)
}

// Subprocess runs at most one child at a time and observes its termination.
// The zero value is ready to use.
type Subprocess struct {
	options Options

	// lifecycle serializes Launch and Stop.
	lifecycle sync.Mutex

	mu      sync.Mutex
	state   State
	child   *Child
	monitor *Monitor
}

func New(options Options) *Subprocess {
	return &Subprocess{options: options}
}

// StartChild launches path with args and reports whether the child started.
// Exactly one of onExit and onCrash is invoked when the child terminates,
// unless Stop is called first.
func (s *Subprocess) StartChild(path string, args []string, onExit, onCrash func()) bool {
	err := s.Launch(path, args, StartOptions{
		OnExit: func(int) {
			if onExit != nil {
				onExit()
			}
		},
		OnCrash: func(string) {
			if onCrash != nil {
				onCrash()
			}
		},
	})
	return err == nil
}

// Launch starts a child. It fails with ErrAlreadyRunning while a previous
// child is starting or running; a *SpawnError leaves the Subprocess without a
// child, a process, or a monitor goroutine. Launch waits for the callback of
// a previous child to return, so it must not be called from a callback.
func (s *Subprocess) Launch(path string, args []string, opts StartOptions) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state == StateStarting || s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateStarting
	previousMonitor := s.monitor
	s.monitor = nil
	s.mu.Unlock()

	// The previous child has terminated, but its monitor may still be
	// inside a callback. Join it so only one monitor goroutine exists.
	previousMonitor.Cancel()

	logger := s.logger().With(map[string]string{"path": path})
	child, err := Spawn(path, args, opts.Launch)
	if err != nil {
		var spawnErr *SpawnError
		kind := SpawnFailed
		if errors.As(err, &spawnErr) {
			kind = spawnErr.Kind
		}
		s.options.Metrics.IncSpawnFailure(kind.String())
		logger.Warn("spawn failed", map[string]string{"error": err.Error()})
		s.setState(StateNotStarted)
		return err
	}

	s.options.Metrics.IncSpawned()

	s.mu.Lock()
	previous := s.child
	s.child = child
	s.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	s.options.Registry.add(s)

	monitor, err := Watch(child, s.callbacks(child, opts), MonitorOptions{
		Logger:  logger,
		Metrics: s.options.Metrics,
	})
	if err != nil {
		if stopErr := terminate(context.Background(), child, 0); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		_ = child.Close()
		s.options.Registry.remove(s)
		logger.Error("monitor start failed", map[string]string{"error": err.Error()})
		s.mu.Lock()
		s.child = nil
		s.state = StateNotStarted
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.monitor = monitor
	// The child may already have terminated and moved the state on.
	if s.state == StateStarting {
		s.state = StateRunning
	}
	s.mu.Unlock()

	logger.Info("child started", map[string]string{
		"pid":  strconv.Itoa(child.Pid()),
		"args": strings.Join(args, " "),
	})
	return nil
}

// callbacks wraps the owner's callbacks with the state transition. They run
// on the monitor goroutine and must not take the lifecycle lock, which Stop
// holds while it joins that goroutine.
func (s *Subprocess) callbacks(child *Child, opts StartOptions) Callbacks {
	return Callbacks{
		OnExit: func(code int) {
			s.finish(child, StateExited)
			if opts.OnExit != nil {
				opts.OnExit(code)
			}
		},
		OnCrash: func(reason string) {
			s.finish(child, StateCrashed)
			if opts.OnCrash != nil {
				opts.OnCrash(reason)
			}
		},
		OnError: func(err error) {
			s.abandon(child)
			if opts.OnError != nil {
				opts.OnError(err)
			}
		},
	}
}

// abandon ends a child whose monitor failed. Without a working wait
// primitive nothing would report its termination, so it is killed and
// collected here.
func (s *Subprocess) abandon(child *Child) {
	if err := terminate(context.Background(), child, 0); err != nil {
		s.logger().Warn("terminate unobserved child failed", map[string]string{
			"pid":   strconv.Itoa(child.Pid()),
			"error": err.Error(),
		})
	}
	s.finish(child, StateFailed)
}

func (s *Subprocess) finish(child *Child, state State) {
	s.mu.Lock()
	if s.child == child {
		s.state = state
	}
	s.mu.Unlock()
	s.options.Registry.remove(s)
}

// Stop cancels the monitor, waits for its goroutine to exit, and then
// terminates and reaps a child that is still running. No callback fires
// after Stop returns. Stop is idempotent and must not be called from a
// callback.
func (s *Subprocess) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	child, monitor := s.child, s.monitor
	s.monitor = nil
	s.mu.Unlock()
	if monitor == nil {
		return nil
	}

	monitor.Cancel()
	defer s.options.Registry.remove(s)

	s.mu.Lock()
	running := s.state == StateRunning
	if running {
		s.state = StateStopped
	}
	s.mu.Unlock()
	if !running {
		return nil
	}

	grace := s.options.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	err := terminate(ctx, child, grace)
	s.options.Metrics.IncStopped()
	fields := map[string]string{"pid": strconv.Itoa(child.Pid())}
	if err != nil {
		fields["error"] = err.Error()
		s.logger().Warn("child stop incomplete", fields)
		return err
	}
	s.logger().Info("child stopped", fields)
	return nil
}

// Close stops the subprocess and releases the child's stream resources.
func (s *Subprocess) Close() error {
	if s == nil {
		return nil
	}
	err := s.Stop(context.Background())
	s.mu.Lock()
	child := s.child
	s.mu.Unlock()
	if child != nil {
		err = errors.Join(err, child.Close())
	}
	return err
}

// Wait blocks until the current child's monitor has finished or ctx is done.
func (s *Subprocess) Wait(ctx context.Context) error {
	s.mu.Lock()
	monitor := s.monitor
	s.mu.Unlock()
	if monitor == nil {
		return nil
	}
	select {
	case <-monitor.Done():
		return monitor.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Subprocess) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Child returns the most recently launched child, or nil.
func (s *Subprocess) Child() *Child {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child
}

func (s *Subprocess) Pid() int {
	return s.Child().Pid()
}

func (s *Subprocess) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Subprocess) logger() *logging.Logger {
	if s.options.Logger == nil {
		return logging.Discard()
	}
	return s.options.Logger.With(map[string]string{"component": "subprocess"})
}
