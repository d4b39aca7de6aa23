//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package process

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// kqueueWaiter waits for NOTE_EXIT on the child and for readability of a
// pipe that cancel writes to.
type kqueueWaiter struct {
	mu     sync.Mutex
	closed bool
	kq     int
	wake   [2]int
	gone   bool
}

func newWaiter(pid int) (waiter, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)

	var wake [2]int
	if err := unix.Pipe(wake[:]); err != nil {
		_ = unix.Close(kq)
		return nil, os.NewSyscallError("pipe", err)
	}
	unix.CloseOnExec(wake[0])
	unix.CloseOnExec(wake[1])
	_ = unix.SetNonblock(wake[1], true)

	w := &kqueueWaiter{kq: kq, wake: wake}

	var changes [1]unix.Kevent_t
	unix.SetKevent(&changes[0], wake[0], unix.EVFILT_READ, unix.EV_ADD)
	if _, err := unix.Kevent(kq, changes[:], nil, nil); err != nil {
		_ = w.close()
		return nil, os.NewSyscallError("kevent", err)
	}

	unix.SetKevent(&changes[0], pid, unix.EVFILT_PROC, unix.EV_ADD|unix.EV_ONESHOT)
	changes[0].Fflags = unix.NOTE_EXIT
	if _, err := unix.Kevent(kq, changes[:], nil, nil); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			_ = w.close()
			return nil, os.NewSyscallError("kevent", err)
		}
		// Already terminated; the status is waiting to be collected.
		w.gone = true
	}
	return w, nil
}

func (w *kqueueWaiter) wait() (bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false, nil
	}
	gone := w.gone
	w.mu.Unlock()
	if gone {
		return true, nil
	}

	var events [2]unix.Kevent_t
	for {
		n, err := unix.Kevent(w.kq, nil, events[:], nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, os.NewSyscallError("kevent", err)
		}
		exited := false
		for _, event := range events[:n] {
			if event.Flags&unix.EV_ERROR != 0 {
				return false, fmt.Errorf("kevent: %w", syscall.Errno(event.Data))
			}
			switch event.Filter {
			case unix.EVFILT_READ:
				return false, nil
			case unix.EVFILT_PROC:
				if event.Fflags&unix.NOTE_EXIT != 0 {
					exited = true
				}
			}
		}
		if exited {
			return true, nil
		}
	}
}

func (w *kqueueWaiter) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	_, _ = unix.Write(w.wake[1], []byte{1})
}

func (w *kqueueWaiter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(unix.Close(w.kq), unix.Close(w.wake[0]), unix.Close(w.wake[1]))
}
