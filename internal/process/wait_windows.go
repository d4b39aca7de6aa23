//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/windows"
)

// handleWaiter waits on the process handle and a manual-reset event.
type handleWaiter struct {
	mu      sync.Mutex
	closed  bool
	process windows.Handle
	wake    windows.Handle
}

func newWaiter(pid int) (waiter, error) {
	process, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return nil, os.NewSyscallError("OpenProcess", err)
	}
	wake, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		_ = windows.CloseHandle(process)
		return nil, os.NewSyscallError("CreateEvent", err)
	}
	return &handleWaiter{process: process, wake: wake}, nil
}

func (w *handleWaiter) wait() (bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false, nil
	}
	// The wake event comes first so cancellation wins when both are signalled.
	handles := []windows.Handle{w.wake, w.process}
	w.mu.Unlock()

	event, err := windows.WaitForMultipleObjects(handles, false, windows.INFINITE)
	if err != nil {
		return false, os.NewSyscallError("WaitForMultipleObjects", err)
	}
	switch event {
	case windows.WAIT_OBJECT_0:
		return false, nil
	case windows.WAIT_OBJECT_0 + 1:
		return true, nil
	default:
		return false, fmt.Errorf("WaitForMultipleObjects: unexpected result %#x", event)
	}
}

func (w *handleWaiter) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	_ = windows.SetEvent(w.wake)
}

func (w *handleWaiter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(windows.CloseHandle(w.process), windows.CloseHandle(w.wake))
}
