//go:build unix

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// terminate asks child to exit with SIGTERM, escalates to SIGKILL after
// grace, and reaps it.
func terminate(ctx context.Context, child *Child, grace time.Duration) error {
	if child == nil || child.process == nil || child.reaped() {
		return nil
	}

	var errs []error
	if err := child.process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("signal child: %w", err))
	}

	exited, err := waitForExit(ctx, child, grace)
	if err != nil {
		errs = append(errs, fmt.Errorf("wait child: %w", err))
	}
	if !exited {
		if err := child.process.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("kill child: %w", err))
		}
	}
	if _, err := child.reap(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("reap child: %w", err))
	}
	return errors.Join(errs...)
}
