package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"sysobserve/internal/config"
	"sysobserve/internal/process"
)

const (
	crashExitCode     = 128
	interruptExitCode = 130
)

func newRunCmd(ctx *context) *cobra.Command {
	var (
		pty       bool
		recursive bool
		watch     []string
	)
	cmd := &cobra.Command{
		Use:   "run [flags] [--] <path> [args...]",
		Short: "Launch a child process and report whether it exits or crashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			child := ctx.config.Child
			if len(args) > 0 {
				child.Path = args[0]
				child.Args = args[1:]
			}
			if cmd.Flags().Changed("pty") {
				child.PTY = pty
			}
			if child.Path == "" {
				return errors.New("run: no executable given")
			}
			paths := append(append([]string(nil), ctx.config.Watch...), watch...)
			err := ctx.run(cmd.Context(), child, paths, recursive || ctx.config.Recursive)
			ctx.writeMetrics(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&pty, "pty", false, "Attach the child to a pseudo-terminal")
	cmd.Flags().StringSliceVarP(&watch, "watch", "w", nil, "Directory to watch while the child runs")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch nested directories too")
	return cmd
}

// run launches child and blocks until it terminates or the command is
// interrupted. The returned *ExitError mirrors the child's status.
func (c *context) run(parent stdcontext.Context, child config.Child, watchPaths []string, recursive bool) error {
	watchErrs := make(chan error, len(watchPaths))
	monitors, err := c.startWatches(watchPaths, recursive, watchErrs)
	if err != nil {
		return err
	}
	defer stopWatches(monitors)

	registry := process.NewRegistry()
	subprocess := process.New(process.Options{
		Logger:    c.logger,
		Metrics:   c.metrics,
		Registry:  registry,
		StopGrace: c.config.StopGrace,
	})
	defer subprocess.Close()

	outcome := make(chan error, 1)
	err = subprocess.Launch(child.Path, child.Args, process.StartOptions{
		Launch: process.LaunchOptions{Dir: child.Dir, PTY: child.PTY},
		OnExit: func(code int) {
			c.out.Exited(child.Path, code)
			if code != 0 {
				outcome <- &ExitError{Code: code}
				return
			}
			outcome <- nil
		},
		OnCrash: func(reason string) {
			c.out.Crashed(child.Path, reason)
			outcome <- &ExitError{Code: crashExitCode}
		},
		OnError: func(err error) {
			outcome <- err
		},
	})
	if err != nil {
		return err
	}
	c.out.Started(child.Path, subprocess.Pid())

	copied := make(chan struct{})
	if terminal := subprocess.Child().Terminal(); terminal != nil {
		go func() {
			defer close(copied)
			_, _ = io.Copy(formatterWriter{c.out}, terminal)
		}()
	} else {
		close(copied)
	}

	var result error
	select {
	case result = <-outcome:
	case err := <-watchErrs:
		result = fmt.Errorf("watch failed: %w", err)
		c.stopAll(registry, child.Path)
	case <-parent.Done():
		c.stopAll(registry, child.Path)
		result = &ExitError{Code: interruptExitCode}
	}

	// Pending terminal output drains once every slave descriptor is closed.
	select {
	case <-copied:
	case <-time.After(time.Second):
	}
	return result
}

func (c *context) stopAll(registry *process.Registry, path string) {
	stopCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), c.config.StopGrace+time.Second)
	defer cancel()
	if err := registry.StopAll(stopCtx); err != nil {
		c.out.Errorf("stop %s: %v", path, err)
		return
	}
	c.out.Stopped(path)
}

type formatterWriter struct {
	out *Formatter
}

func (w formatterWriter) Write(data []byte) (int, error) {
	w.out.Raw(data)
	return len(data), nil
}
