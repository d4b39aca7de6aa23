package logging

import (
	"sync"
	"testing"
	"time"
)

func TestLogBufferDropsOldestWhenFull(t *testing.T) {
	buffer := NewLogBuffer(2)
	buffer.Add(LogEntry{Message: "spawned"})
	buffer.Add(LogEntry{Message: "exited"})
	buffer.Add(LogEntry{Message: "stopped"})

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "exited" || entries[1].Message != "stopped" {
		t.Fatalf("unexpected order: %q, %q", entries[0].Message, entries[1].Message)
	}
}

func TestLogBufferEmpty(t *testing.T) {
	buffer := NewLogBuffer(0)
	if buffer.Len() != 0 || buffer.List() != nil {
		t.Fatalf("expected empty buffer")
	}
	buffer.Add(LogEntry{Message: "one"})
	if buffer.Len() != 1 {
		t.Fatalf("expected size-1 ring to hold one entry, got %d", buffer.Len())
	}
}

func TestLogBufferConcurrentAdds(t *testing.T) {
	buffer := NewLogBuffer(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				buffer.Add(LogEntry{Timestamp: time.Now(), Message: "entry"})
			}
		}()
	}
	wg.Wait()

	if got := len(buffer.List()); got != 50 {
		t.Fatalf("expected 50 entries, got %d", got)
	}
}
