package watcher

import "time"

// coalescer merges events that arrive within a quiet window. A steady stream
// of events is still flushed once maxDelay has passed since the first one.
type coalescer struct {
	window   time.Duration
	maxDelay time.Duration
	timer    *time.Timer
	pending  int
	first    time.Time
}

func newCoalescer(window time.Duration) *coalescer {
	if window == 0 {
		window = defaultCoalesce
	}
	return &coalescer{
		window:   window,
		maxDelay: 4 * window,
	}
}

// add records one event and reports whether the batch must be delivered now.
func (coalescer *coalescer) add() bool {
	coalescer.pending++
	if coalescer.window < 0 {
		return true
	}
	if coalescer.pending == 1 {
		coalescer.first = time.Now()
	}
	wait := coalescer.window
	if remaining := coalescer.maxDelay - time.Since(coalescer.first); remaining < wait {
		wait = max(remaining, 0)
	}
	if coalescer.timer == nil {
		coalescer.timer = time.NewTimer(wait)
	} else {
		coalescer.timer.Reset(wait)
	}
	return false
}

// ready fires when the pending batch should be delivered.
func (coalescer *coalescer) ready() <-chan time.Time {
	if coalescer.timer == nil || coalescer.pending == 0 {
		return nil
	}
	return coalescer.timer.C
}

// take returns the number of pending events and starts a new batch.
func (coalescer *coalescer) take() int {
	pending := coalescer.pending
	coalescer.pending = 0
	return pending
}

func (coalescer *coalescer) stop() {
	if coalescer.timer != nil {
		coalescer.timer.Stop()
	}
	coalescer.pending = 0
}
