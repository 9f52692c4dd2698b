package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/crank"
)

// CrankOptions holds flags for the crank command.
type CrankOptions struct {
	*RootOptions
	Once          bool
	Schedule      string
	MetricsListen string
}

// NewCrankCommand creates the crank command.
func NewCrankCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CrankOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "crank",
		Short: "Trigger due yield hooks",
		Long: `Run the permissionless crank.

With --once a single pass runs and its report is printed. Otherwise the
crank runs on a cron schedule until interrupted, optionally serving
Prometheus metrics.

Example:
  neobank crank --once
  neobank crank --schedule "@every 30s" --metrics-listen :9100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrank(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single pass and exit")
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron schedule (overrides crank.schedule)")
	cmd.Flags().StringVar(&opts.MetricsListen, "metrics-listen", "", "serve /metrics on this address (overrides metrics.listen)")

	return cmd
}

func runCrank(opts *CrankOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	return withApp(opts.RootOptions, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
		c := crank.New(app.Hooks, app.Metrics, app.Logger)

		if opts.Once {
			rep, err := c.RunOnce(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "crank pass failed", err)
			}
			return formatter.Success(rep)
		}

		schedule := app.Config.Crank.Schedule
		if opts.Schedule != "" {
			schedule = opts.Schedule
		}
		listen := app.Config.Metrics.Listen
		if opts.MetricsListen != "" {
			listen = opts.MetricsListen
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := c.Start(ctx, schedule); err != nil {
			return WrapExitError(ExitCommandError, "failed to start crank", err)
		}
		defer c.Stop()

		if listen != "" {
			srv := crank.MetricsServer(listen, app.Registry)
			go func() {
				app.Logger.Info("serving metrics", "addr", listen)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					app.Logger.Error("metrics server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		<-ctx.Done()
		app.Logger.Info("shutting down")
		return nil
	})
}
