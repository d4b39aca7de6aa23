//go:build unix

package process

import (
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func crashSelf() {
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGKILL)
	time.Sleep(time.Minute)
}

// inheritedHandles lists every open descriptor above the standard streams.
func inheritedHandles() string {
	return strings.Join(openDescriptors(false), "\n")
}

// openDescriptors returns descriptors 3..255 that are open. With
// inheritableOnly set, descriptors marked close-on-exec are skipped.
func openDescriptors(inheritableOnly bool) []string {
	var open []string
	for fd := 3; fd < 256; fd++ {
		flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
		if err != nil {
			continue
		}
		if inheritableOnly && flags&unix.FD_CLOEXEC != 0 {
			continue
		}
		open = append(open, strconv.Itoa(fd))
	}
	return open
}
