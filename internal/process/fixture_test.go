//go:build unix || windows

package process

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sysobserve/internal/fsutil"
	"sysobserve/internal/watcher"
)

// testArea is a scratch directory next to the test binary, watched for the
// duration of one test so children can be observed touching it.
type testArea struct {
	path    string
	changes atomic.Int64
	changed chan struct{}
	monitor *watcher.DirectoryMonitor
}

func newTestArea(t *testing.T) *testArea {
	t.Helper()
	parent, err := fsutil.ExeParentDirectory()
	if err != nil {
		t.Fatalf("exe dir: %v", err)
	}
	area := &testArea{
		path:    filepath.Join(parent, "TestArea"),
		changed: make(chan struct{}, 16),
	}
	if err := fsutil.DeleteDirectory(area.path); err != nil {
		t.Fatalf("clear test area: %v", err)
	}
	if err := fsutil.CreateDirectory(area.path); err != nil {
		t.Fatalf("create test area: %v", err)
	}
	area.monitor = watcher.New(watcher.Options{Coalesce: 20 * time.Millisecond})
	if !area.monitor.Start(area.onChange, area.path) {
		t.Fatalf("watch test area")
	}
	t.Cleanup(func() {
		area.monitor.Stop()
		if err := fsutil.DeleteDirectory(area.path); err != nil {
			t.Errorf("delete test area: %v", err)
		}
	})

	t.Setenv(helperEnv, "1")
	t.Setenv(areaEnv, area.path)
	return area
}

func (area *testArea) onChange() {
	area.changes.Add(1)
	select {
	case area.changed <- struct{}{}:
	default:
	}
}

func (area *testArea) awaitChange(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-area.changed:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for change in %s", area.path)
	}
}

func (area *testArea) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(area.path, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// helperPath is the executable the tests launch as a child.
func helperPath(t *testing.T) string {
	t.Helper()
	path, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	return path
}

// outcomeRecorder captures which termination callback fired.
type outcomeRecorder struct {
	exits   atomic.Int64
	crashes atomic.Int64
	code    atomic.Int64
	reason  atomic.Value
	errors  atomic.Int64
	done    chan struct{}
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{done: make(chan struct{}, 4)}
}

func (r *outcomeRecorder) startOptions() StartOptions {
	return StartOptions{
		OnExit: func(code int) {
			r.code.Store(int64(code))
			r.exits.Add(1)
			r.done <- struct{}{}
		},
		OnCrash: func(reason string) {
			r.reason.Store(reason)
			r.crashes.Add(1)
			r.done <- struct{}{}
		},
		OnError: func(error) {
			r.errors.Add(1)
			r.done <- struct{}{}
		},
	}
}

func (r *outcomeRecorder) await(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for termination callback")
	}
}
