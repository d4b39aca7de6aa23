package process

import (
	"context"
	"time"
)

// waitForExit blocks in the platform wait primitive until child terminates,
// grace elapses or ctx is done. It reports whether the child terminated.
func waitForExit(ctx context.Context, child *Child, grace time.Duration) (bool, error) {
	if grace <= 0 {
		return false, nil
	}
	w, err := newWaiter(child.Pid())
	if err != nil {
		return false, err
	}
	defer w.close()

	timer := time.AfterFunc(grace, w.cancel)
	defer timer.Stop()
	if ctx != nil {
		stop := context.AfterFunc(ctx, w.cancel)
		defer stop()
	}
	return w.wait()
}
