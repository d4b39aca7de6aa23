//go:build unix

package process

import (
	"os"
	"syscall"
)

func classify(state *os.ProcessState) Outcome {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return Outcome{ExitCode: state.ExitCode()}
	}
	if status.Signaled() {
		reason := status.Signal().String()
		if status.CoreDump() {
			reason += " (core dumped)"
		}
		return Outcome{Crashed: true, ExitCode: -1, Reason: reason}
	}
	return Outcome{ExitCode: status.ExitStatus()}
}
