package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/tripprices/internal/comparator"
	"github.com/Vodeneev/tripprices/internal/pkg/health"
	"github.com/Vodeneev/tripprices/internal/pkg/scheduler"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison API, health probes and metrics",
		Long: `Serve /compare, /clubs, /sources, /ping, /health and /metrics.

When schedule.clubs is configured, the comparison for those clubs also runs every
schedule.interval and on POST /run, and its results go to the configured sinks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				c.cfg.Server.Port = port
			}
			addr, err := health.AddrFor(c.cfg.Server.Port)
			if err != nil {
				return err
			}

			a, err := newApp(c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mux := health.NewMux(a.service, c.cfg.Server.WriteTimeout)
			if len(c.cfg.Schedule.Clubs) > 0 {
				runner := newScheduledRunner(a.service, c.cfg.Schedule.Clubs, c.cfg.Schedule.Interval, c.cfg.Schedule.CycleTimeout)
				health.HandleScheduler(mux, runner)
				go runner.Run(ctx)
			}
			return <-health.Run(ctx, addr, "tripprices", mux, c.cfg.Server)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

// comparer is the part of comparator.Service a scheduled run needs.
type comparer interface {
	Compare(ctx context.Context, req comparator.Request) (*comparator.Comparison, error)
}

// newScheduledRunner compares clubs on every cycle. Results reach the sinks through the
// service, so the cycle itself only logs.
func newScheduledRunner(svc comparer, clubs []string, interval, timeout time.Duration) *scheduler.Runner {
	return scheduler.New("scheduled-compare", interval, timeout, func(ctx context.Context) error {
		res, err := svc.Compare(ctx, comparator.Request{Clubs: clubs})
		if err != nil {
			return err
		}
		slog.Info("Scheduled comparison done", "run_id", res.RunID, "rows", len(res.Matrix.Rows), "overpriced", len(res.Overpriced))
		return nil
	})
}
