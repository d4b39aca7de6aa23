//go:build unix

package process

import (
	"errors"
	"os"
	"syscall"

	"github.com/creack/pty"
)

func sysProcAttr(withTerminal bool) *syscall.SysProcAttr {
	if !withTerminal {
		return nil
	}
	// Ctty 0 is the child's stdin, which is the tty.
	return &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}
}

func openTerminal() (*os.File, *os.File, error) {
	return pty.Open()
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
