package process

import (
	"fmt"
	"strconv"
	"sync"

	"sysobserve/internal/logging"
	"sysobserve/internal/metrics"
)

// MonitorState is the lifecycle state of a Monitor.
type MonitorState int

const (
	MonitorIdle MonitorState = iota
	MonitorWatching
	MonitorDelivered
	MonitorCancelled
	MonitorFailed
)

func (s MonitorState) String() string {
	switch s {
	case MonitorIdle:
		return "idle"
	case MonitorWatching:
		return "watching"
	case MonitorDelivered:
		return "delivered"
	case MonitorCancelled:
		return "cancelled"
	case MonitorFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Callbacks receive the outcome of a monitored child. At most one of them is
// invoked, on the monitor goroutine.
type Callbacks struct {
	OnExit  func(code int)
	OnCrash func(reason string)
	// OnError is invoked when the wait primitive fails.
	OnError func(err error)
}

// MonitorOptions carries the ambient dependencies of a Monitor.
type MonitorOptions struct {
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Monitor owns the goroutine waiting for one child to terminate.
type Monitor struct {
	child   *Child
	pid     int
	waiter  waiter
	logger  *logging.Logger
	metrics *metrics.Registry

	mu        sync.Mutex
	state     MonitorState
	callbacks Callbacks
	outcome   Outcome
	err       error

	releaseOnce sync.Once
	done        chan struct{}
}

// Watch starts a monitor for child. A wait primitive that cannot be created
// is returned as a *MonitorError and no goroutine is started.
func Watch(child *Child, callbacks Callbacks, opts MonitorOptions) (*Monitor, error) {
	if child == nil || child.process == nil {
		return nil, &MonitorError{Pid: -1, Op: "watch", Err: fmt.Errorf("child not started")}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	w, err := newWaiter(child.Pid())
	if err != nil {
		return nil, &MonitorError{Pid: child.Pid(), Op: "watch", Err: err}
	}

	monitor := &Monitor{
		child:     child,
		pid:       child.Pid(),
		waiter:    w,
		logger:    logger.With(map[string]string{"pid": strconv.Itoa(child.Pid())}),
		metrics:   opts.Metrics,
		state:     MonitorWatching,
		callbacks: callbacks,
		done:      make(chan struct{}),
	}
	monitor.metrics.ObserverStarted()
	go monitor.run()
	return monitor, nil
}

func (m *Monitor) run() {
	defer close(m.done)
	defer m.metrics.ObserverFinished()
	defer m.release()

	exited, err := m.waiter.wait()
	if err != nil {
		m.fail("wait", err)
		return
	}
	if !exited {
		return
	}

	state, err := m.child.reap()
	if err != nil {
		m.fail("reap", err)
		return
	}
	outcome := classify(state)

	m.mu.Lock()
	if m.state != MonitorWatching {
		m.mu.Unlock()
		return
	}
	m.state = MonitorDelivered
	m.outcome = outcome
	callbacks := m.callbacks
	m.callbacks = Callbacks{}
	m.mu.Unlock()

	if outcome.Crashed {
		m.metrics.IncCrashed()
		m.logger.Warn("child crashed", map[string]string{"reason": outcome.Reason})
		if callbacks.OnCrash != nil {
			callbacks.OnCrash(outcome.Reason)
		}
		return
	}
	m.metrics.IncExited()
	m.logger.Info("child exited", map[string]string{"code": strconv.Itoa(outcome.ExitCode)})
	if callbacks.OnExit != nil {
		callbacks.OnExit(outcome.ExitCode)
	}
}

func (m *Monitor) fail(op string, err error) {
	monitorErr := &MonitorError{Pid: m.pid, Op: op, Err: err}

	m.mu.Lock()
	if m.state != MonitorWatching {
		m.mu.Unlock()
		return
	}
	m.state = MonitorFailed
	m.err = monitorErr
	onError := m.callbacks.OnError
	m.callbacks = Callbacks{}
	m.mu.Unlock()

	m.metrics.IncMonitorError()
	m.logger.Error("process monitor failed", map[string]string{"error": monitorErr.Error()})
	if onError != nil {
		onError(monitorErr)
	}
}

func (m *Monitor) release() {
	m.releaseOnce.Do(func() {
		if err := m.waiter.close(); err != nil {
			m.logger.Warn("release wait primitive failed", map[string]string{"error": err.Error()})
		}
	})
}

// Cancel wakes the monitor goroutine and waits for it to exit. No callback
// starts after Cancel returns. Calling Cancel after delivery only waits for
// the delivering callback to finish.
func (m *Monitor) Cancel() {
	if m == nil {
		return
	}
	m.mu.Lock()
	cancelled := m.state == MonitorWatching
	if cancelled {
		m.state = MonitorCancelled
		m.callbacks = Callbacks{}
	}
	m.mu.Unlock()

	m.waiter.cancel()
	<-m.done
	if cancelled {
		m.metrics.IncCancelled()
		m.logger.Debug("process monitor cancelled", nil)
	}
}

// Done is closed once the monitor goroutine has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Outcome returns the delivered outcome, if any.
func (m *Monitor) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome, m.state == MonitorDelivered
}

// Err returns the *MonitorError that ended the monitor, if any.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
