// Package cli implements the sysobserve command line.
package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"sysobserve/internal/config"
	"sysobserve/internal/logging"
	"sysobserve/internal/metrics"
	"sysobserve/internal/otel"
	"sysobserve/internal/version"
)

const (
	logBufferSize   = 256
	shutdownTimeout = 5 * time.Second
)

// ExitError carries the exit status the process should end with.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// context is the state shared by all subcommands of one invocation.
type context struct {
	configPath  string
	logLevel    string
	showMetrics bool
	noColor     bool

	config  config.Config
	logger  *logging.Logger
	metrics *metrics.Registry
	out     *Formatter

	shutdownSDK  func(stdcontext.Context) error
	registration metric.Registration
}

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{}

	root := &cobra.Command{
		Use:     "sysobserve",
		Short:   "Launch processes and watch directories, reporting how they change",
		Version: version.Current().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warning, error)")
	root.PersistentFlags().BoolVar(&ctx.showMetrics, "metrics", false, "Print Prometheus metrics on exit")
	root.PersistentFlags().BoolVar(&ctx.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newWatchCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

func (c *context) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.SetLogLevel(c.logLevel)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Metrics = c.showMetrics
	}
	c.config = cfg

	c.logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logBufferSize), cfg.Level(), cmd.ErrOrStderr())
	c.metrics = &metrics.Registry{}
	c.out = NewFormatter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !c.noColor && !color.NoColor)

	sdkOptions := otel.SDKOptionsFromEnv()
	sdkOptions.ServiceVersion = version.Version
	shutdown, err := otel.SetupSDK(cmd.Context(), sdkOptions)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	c.shutdownSDK = shutdown
	registration, err := otel.RegisterObserverMetrics(otelapi.GetMeterProvider(), c.metrics)
	if err != nil {
		c.logger.Warn("register telemetry metrics failed", map[string]string{"error": err.Error()})
	} else {
		c.registration = registration
	}
	return nil
}

// close flushes telemetry. It is safe to call when setup never ran.
func (c *context) close() {
	if c.registration != nil {
		_ = c.registration.Unregister()
	}
	if c.shutdownSDK == nil {
		return
	}
	shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), shutdownTimeout)
	defer cancel()
	if err := c.shutdownSDK(shutdownCtx); err != nil && c.logger != nil {
		c.logger.Warn("telemetry shutdown failed", map[string]string{"error": err.Error()})
	}
}
func (c *context) writeMetrics(w io.Writer) {
	if !c.config.Metrics {
		return
	}
	if err := c.metrics.WritePrometheus(w); err != nil {
		c.logger.Warn("write metrics failed", map[string]string{"error": err.Error()})
	}
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, app := newRootCommand()
	err := root.ExecuteContext(ctx)
	app.close()
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	stop()
	os.Exit(1)
}
