//go:build linux

package process

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// pidfdWaiter polls a pidfd together with an eventfd used as the wake source.
type pidfdWaiter struct {
	mu     sync.Mutex
	closed bool
	pidfd  int
	wakefd int
}

func newWaiter(pid int) (waiter, error) {
	pidfd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return nil, fmt.Errorf("%w: pidfd_open requires linux 5.3", ErrWaitUnsupported)
		}
		return nil, os.NewSyscallError("pidfd_open", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(pidfd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	return &pidfdWaiter{pidfd: pidfd, wakefd: wakefd}, nil
}

func (w *pidfdWaiter) wait() (bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false, nil
	}
	fds := []unix.PollFd{
		{Fd: int32(w.wakefd), Events: unix.POLLIN},
		{Fd: int32(w.pidfd), Events: unix.POLLIN},
	}
	w.mu.Unlock()

	for {
		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, os.NewSyscallError("poll", err)
		}
		// Cancellation wins when both are ready.
		if fds[0].Revents != 0 {
			return false, nil
		}
		if fds[1].Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			return true, nil
		}
		if fds[1].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return false, fmt.Errorf("poll pidfd: revents %#x", fds[1].Revents)
		}
	}
}

func (w *pidfdWaiter) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(w.wakefd, buf[:])
}

func (w *pidfdWaiter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(unix.Close(w.pidfd), unix.Close(w.wakefd))
}
