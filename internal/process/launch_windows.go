//go:build windows

package process

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

var errConPTYUnavailable = errors.New("pseudo-terminal children are not supported on windows")

func sysProcAttr(withTerminal bool) *syscall.SysProcAttr {
	return nil
}

func openTerminal() (*os.File, *os.File, error) {
	return nil, nil, errConPTYUnavailable
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, windows.ERROR_NOT_ENOUGH_MEMORY) ||
		errors.Is(err, windows.ERROR_NO_SYSTEM_RESOURCES) ||
		errors.Is(err, windows.ERROR_TOO_MANY_OPEN_FILES) ||
		errors.Is(err, windows.ERROR_OUTOFMEMORY)
}
