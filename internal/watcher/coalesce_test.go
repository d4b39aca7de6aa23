package watcher

import (
	"testing"
	"time"
)

func TestCoalescerDeliversImmediatelyWhenDisabled(t *testing.T) {
	batch := newCoalescer(-1)
	if !batch.add() {
		t.Fatalf("expected immediate delivery")
	}
	if got := batch.take(); got != 1 {
		t.Fatalf("expected 1 pending event, got %d", got)
	}
	if batch.ready() != nil {
		t.Fatalf("expected no timer when disabled")
	}
}

func TestCoalescerMergesWithinWindow(t *testing.T) {
	batch := newCoalescer(50 * time.Millisecond)
	defer batch.stop()
	for i := 0; i < 3; i++ {
		if batch.add() {
			t.Fatalf("expected batching")
		}
	}
	select {
	case <-batch.ready():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for window to close")
	}
	if got := batch.take(); got != 3 {
		t.Fatalf("expected 3 pending events, got %d", got)
	}
	if batch.ready() != nil {
		t.Fatalf("expected no ready channel with an empty batch")
	}
}

func TestCoalescerBoundsDelayUnderSteadyEvents(t *testing.T) {
	batch := newCoalescer(40 * time.Millisecond)
	defer batch.stop()
	start := time.Now()
	batch.add()
	for {
		select {
		case <-batch.ready():
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Fatalf("batch held for %s", elapsed)
			}
			return
		case <-time.After(10 * time.Millisecond):
			batch.add()
		}
		if time.Since(start) > 2*time.Second {
			t.Fatal("batch never flushed under steady events")
		}
	}
}
