//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// terminate kills child and reaps it. Windows has no polite termination
// request for console-less children, so grace is unused.
func terminate(ctx context.Context, child *Child, grace time.Duration) error {
	if child == nil || child.process == nil || child.reaped() {
		return nil
	}
	_ = ctx
	_ = grace

	var errs []error
	if err := child.process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("kill child: %w", err))
	}
	if _, err := child.reap(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("reap child: %w", err))
	}
	return errors.Join(errs...)
}
