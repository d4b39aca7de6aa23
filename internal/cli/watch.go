package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sysobserve/internal/watcher"
)

func newWatchCmd(ctx *context) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "watch [flags] <dir> [dir...]",
		Short: "Report changes to directories until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := append(append([]string(nil), ctx.config.Watch...), args...)
			if len(paths) == 0 {
				return errors.New("watch: no directory given")
			}

			errs := make(chan error, len(paths))
			monitors, err := ctx.startWatches(paths, recursive || ctx.config.Recursive, errs)
			if err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
			case err = <-errs:
				err = fmt.Errorf("watch failed: %w", err)
			}
			stopWatches(monitors)
			ctx.writeMetrics(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch nested directories too")
	return cmd
}

// startWatches starts one monitor per path. Failures of a running monitor
// are reported on errs. If any path cannot be watched, the monitors already
// started are stopped.
func (c *context) startWatches(paths []string, recursive bool, errs chan<- error) ([]*watcher.DirectoryMonitor, error) {
	monitors := make([]*watcher.DirectoryMonitor, 0, len(paths))
	for _, path := range paths {
		path := path
		monitor := watcher.New(watcher.Options{
			Logger:    c.logger,
			Metrics:   c.metrics,
			Coalesce:  c.config.Coalesce,
			Recursive: recursive,
			OnError: func(err error) {
				c.out.Errorf("%v", err)
				select {
				case errs <- err:
				default:
				}
			},
		})
		if err := monitor.Watch(path, func() { c.out.Changed(path) }); err != nil {
			stopWatches(monitors)
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
		monitors = append(monitors, monitor)
	}
	return monitors, nil
}

func stopWatches(monitors []*watcher.DirectoryMonitor) {
	for _, monitor := range monitors {
		monitor.Stop()
	}
}
