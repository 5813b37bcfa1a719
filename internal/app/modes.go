package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/perpspot/internal/server"
	"github.com/alanyoungcy/perpspot/internal/server/handler"
)

// MonitorMode runs the stream connector and the polling scan loop, logging
// detected opportunities. No HTTP surface.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runIgnoreCancel(deps.Connector.Run, ctx)
	})
	g.Go(func() error {
		return a.runScanLoop(ctx, deps)
	})

	return g.Wait()
}

// ServerMode runs the stream connector and the HTTP API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runIgnoreCancel(deps.Connector.Run, ctx)
	})
	g.Go(func() error {
		return a.runServer(ctx, deps)
	})

	return g.Wait()
}

// FullMode runs everything: connector, scan loop, and the HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runIgnoreCancel(deps.Connector.Run, ctx)
	})
	g.Go(func() error {
		return a.runScanLoop(ctx, deps)
	})
	g.Go(func() error {
		return a.runServer(ctx, deps)
	})

	return g.Wait()
}

// runScanLoop periodically scans all tokens. The loop itself never detects;
// it drives the service, which feeds the rolling spread windows and persists
// what it finds.
func (a *App) runScanLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.PollInterval.Duration
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "scan loop started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			opps, err := deps.ArbSvc.Scan(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.WarnContext(ctx, "scan failed", slog.String("error", err.Error()))
				continue
			}
			for _, opp := range opps {
				a.logger.InfoContext(ctx, "opportunity",
					slog.String("token", opp.Token),
					slog.Float64("spread_bps", opp.SpreadBps),
					slog.Float64("z_score", opp.ZScore),
					slog.String("strategy", string(opp.Strategy)),
					slog.Float64("net_pnl", opp.EstimatedNetPnL),
					slog.Bool("synthetic", opp.Synthetic),
				)
			}
		}
	}
}

// runServer starts the HTTP API and shuts it down when the context ends.
func (a *App) runServer(ctx context.Context, deps *Dependencies) error {
	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(deps.Connector, deps.Cache, a.logger),
			Arb:    handler.NewArbHandler(deps.ArbSvc, a.logger),
			Sim:    handler.NewSimHandler(deps.SimSvc, a.logger),
		},
		a.logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runIgnoreCancel adapts a long-running component so context cancellation
// reads as a clean shutdown instead of an errgroup failure.
func runIgnoreCancel(run func(context.Context) error, ctx context.Context) error {
	err := run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
