package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sysobserve/internal/logging"
	"sysobserve/internal/metrics"
)

const changeOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// New creates a DirectoryMonitor with custom options.
func New(options Options) *DirectoryMonitor {
	return &DirectoryMonitor{options: options}
}

// Start begins watching path and reports whether the watch is active.
func (monitor *DirectoryMonitor) Start(callback func(), path string) bool {
	return monitor.Watch(path, callback) == nil
}

// Watch begins watching path, invoking callback on the monitor goroutine
// after each batch of changes. It fails with ErrAlreadyWatching while a watch
// is active; on any failure the monitor is left idle.
func (monitor *DirectoryMonitor) Watch(path string, callback func()) error {
	if callback == nil {
		return errors.New("callback is required")
	}
	monitor.lifecycle.Lock()
	defer monitor.lifecycle.Unlock()

	monitor.mutex.Lock()
	if monitor.state == StateWatching {
		monitor.mutex.Unlock()
		return ErrAlreadyWatching
	}
	// A failed watch has already ended; finish releasing it.
	stale := monitor.active
	monitor.active = nil
	monitor.mutex.Unlock()
	if stale != nil {
		stale.shutdown()
	}

	watch, err := monitor.open(path, callback)
	if err != nil {
		monitor.mutex.Lock()
		monitor.state = StateIdle
		monitor.path = ""
		monitor.mutex.Unlock()
		monitor.logger().Warn("directory watch failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}

	monitor.mutex.Lock()
	monitor.active = watch
	monitor.state = StateWatching
	monitor.path = watch.path
	monitor.mutex.Unlock()

	monitor.options.Metrics.ObserverStarted()
	go watch.run()
	monitor.logger().Debug("directory watch started", map[string]string{
		"path":        watch.path,
		"directories": strconv.Itoa(len(watch.dirs)),
	})
	return nil
}

func (monitor *DirectoryMonitor) open(path string, callback func()) (*watch, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w", path, ErrNotDirectory)
	}

	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	maxWatches := monitor.options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}
	watch := &watch{
		path:       abs,
		source:     source,
		callback:   callback,
		coalesce:   monitor.options.Coalesce,
		recursive:  monitor.options.Recursive,
		maxWatches: maxWatches,
		logger:     monitor.logger().With(map[string]string{"path": abs}),
		metrics:    monitor.options.Metrics,
		onError:    monitor.options.OnError,
		dirs:       make(map[string]struct{}),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	watch.onFailed = func() {
		monitor.mutex.Lock()
		if monitor.active == watch {
			monitor.state = StateFailed
		}
		monitor.mutex.Unlock()
	}
	if err := watch.addTree(abs); err != nil {
		watch.release()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return watch, nil
}

// Stop wakes the monitor goroutine, waits for it to exit and releases the
// notification handle. No callback starts after Stop returns. Stopping an
// idle monitor does nothing.
func (monitor *DirectoryMonitor) Stop() {
	if monitor == nil {
		return
	}
	monitor.lifecycle.Lock()
	defer monitor.lifecycle.Unlock()

	monitor.mutex.Lock()
	watch := monitor.active
	monitor.active = nil
	monitor.mutex.Unlock()
	if watch == nil {
		return
	}

	watch.shutdown()

	monitor.mutex.Lock()
	monitor.state = StateStopped
	monitor.mutex.Unlock()
	monitor.logger().Debug("directory watch stopped", map[string]string{"path": watch.path})
}

func (monitor *DirectoryMonitor) State() State {
	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()
	return monitor.state
}

// Path returns the absolute path of the active watch.
func (monitor *DirectoryMonitor) Path() string {
	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()
	return monitor.path
}

func (monitor *DirectoryMonitor) logger() *logging.Logger {
	if monitor.options.Logger == nil {
		return logging.Discard()
	}
	return monitor.options.Logger.With(map[string]string{"component": "watcher"})
}

// watch is one active registration and the goroutine serving it.
type watch struct {
	path       string
	source     *fsnotify.Watcher
	callback   func()
	coalesce   time.Duration
	recursive  bool
	maxWatches int
	logger     *logging.Logger
	metrics    *metrics.Registry
	onError    func(error)
	onFailed   func()

	// dirs is only touched by addTree before run starts and by run.
	dirs map[string]struct{}

	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

func (watch *watch) run() {
	defer close(watch.done)
	defer watch.metrics.ObserverFinished()

	batch := newCoalescer(watch.coalesce)
	defer batch.stop()

	for {
		select {
		case <-watch.stop:
			return
		case event, ok := <-watch.source.Events:
			if !ok {
				watch.fail(errors.New("event stream closed"))
				return
			}
			if event.Op&changeOps == 0 {
				continue
			}
			watch.track(event)
			if batch.add() {
				watch.deliver(batch.take())
			}
		case <-batch.ready():
			watch.deliver(batch.take())
		case err, ok := <-watch.source.Errors:
			if !ok {
				watch.fail(errors.New("error stream closed"))
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost, so something certainly changed.
				watch.logger.Warn("change queue overflowed", nil)
				if batch.add() {
					watch.deliver(batch.take())
				}
				continue
			}
			watch.fail(err)
			return
		}
	}
}

func (watch *watch) track(event fsnotify.Event) {
	if !watch.recursive {
		return
	}
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return
		}
		if err := watch.addTree(event.Name); err != nil {
			watch.logger.Warn("watch nested directory failed", map[string]string{
				"dir":   event.Name,
				"error": err.Error(),
			})
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		watch.forgetTree(event.Name)
	}
}

func (watch *watch) deliver(events int) {
	select {
	case <-watch.stop:
		return
	default:
	}
	watch.metrics.RecordChangeBatch(events)
	watch.logger.Debug("directory changed", map[string]string{"events": strconv.Itoa(events)})
	watch.callback()
}

func (watch *watch) fail(err error) {
	select {
	case <-watch.stop:
		return
	default:
	}
	monitorErr := &MonitorError{Path: watch.path, Err: err}
	watch.onFailed()
	watch.release()
	watch.metrics.IncMonitorError()
	watch.logger.Error("directory monitor failed", map[string]string{"error": err.Error()})
	if watch.onError != nil {
		watch.onError(monitorErr)
	}
}

func (watch *watch) shutdown() {
	watch.stopOnce.Do(func() {
		close(watch.stop)
	})
	<-watch.done
	watch.release()
}

func (watch *watch) release() {
	watch.closeOnce.Do(func() {
		if err := watch.source.Close(); err != nil {
			watch.logger.Warn("close notification handle failed", map[string]string{"error": err.Error()})
		}
	})
}
