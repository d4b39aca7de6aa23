//go:build unix || windows

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// The test binary doubles as the observed child. A child run carries
// helperEnv=1 and receives [message, mode] as its arguments.
const (
	helperEnv = "SYSOBSERVE_HELPER_PROCESS"
	areaEnv   = "SYSOBSERVE_TEST_AREA"
)

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelper(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func runHelper(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: helper <message> <mode>")
		return 64
	}
	message, mode := args[0], args[1]
	area := os.Getenv(areaEnv)

	switch mode {
	case "handles":
		// Scan before this process opens anything of its own.
		report := inheritedHandles()
		if err := os.WriteFile(filepath.Join(area, "handles"), []byte(report), 0o600); err != nil {
			return 70
		}
		return 0
	case "exit":
		recordMessage(area, message)
		return 0
	case "fail":
		recordMessage(area, message)
		return 7
	case "crash":
		recordMessage(area, message)
		crashSelf()
		return 0
	case "sleep":
		time.Sleep(time.Minute)
		return 0
	case "tty":
		fmt.Fprintln(os.Stdout, message)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		return 64
	}
}

func recordMessage(area, message string) {
	if area == "" {
		return
	}
	_ = os.WriteFile(filepath.Join(area, "message"), []byte(message), 0o600)
}
