//go:build windows

package process

import (
	"fmt"
	"os"
)

// Exit codes carrying the NTSTATUS error severity bits are unhandled
// exceptions raised by the OS, not values the program chose.
const ntStatusError = 0xC0000000

func classify(state *os.ProcessState) Outcome {
	code := uint32(state.ExitCode())
	if code&ntStatusError == ntStatusError {
		return Outcome{
			Crashed:  true,
			ExitCode: int(code),
			Reason:   fmt.Sprintf("exception 0x%08X", code),
		}
	}
	return Outcome{ExitCode: int(code)}
}
