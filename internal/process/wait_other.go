//go:build !linux && !windows && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package process

func newWaiter(pid int) (waiter, error) {
	return nil, ErrWaitUnsupported
}
