package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/server"
	"github.com/alanyoungcy/lofbot/internal/server/handler"
	"github.com/alanyoungcy/lofbot/internal/server/ws"
)

// monitorLockKey names the lease that elects the single replica running the
// periodic screen.
const monitorLockKey = "monitor"

// OpportunityBatch is the payload published on ChannelOpportunities after
// every monitor pass.
type OpportunityBatch struct {
	At            time.Time                     `json:"at"`
	FundCount     int                           `json:"fund_count"`
	Partial       bool                          `json:"partial,omitempty"`
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// MonitorStatus is the payload published on ChannelStatus after every pass.
type MonitorStatus struct {
	At            time.Time     `json:"at"`
	Mode          string        `json:"mode"`
	Funds         int           `json:"funds"`
	Opportunities int           `json:"opportunities"`
	Duration      time.Duration `json:"duration_ns"`
}

// ScreenMode screens the fund universe once and writes every result to out as
// one JSON document per line.
func (a *App) ScreenMode(ctx context.Context, deps *Dependencies, out io.Writer) error {
	a.logger.InfoContext(ctx, "starting screen mode")

	codes, err := deps.Funds.FundCodes(ctx)
	if err != nil {
		return fmt.Errorf("screen mode: fund codes: %w", err)
	}

	results, screenErr := deps.Funds.ScreenFunds(ctx, codes)

	enc := json.NewEncoder(out)
	written := 0
	for _, r := range results {
		if a.cfg.Screen.OnlyOpportunities && !r.HasOpportunity {
			continue
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("screen mode: write result: %w", err)
		}
		written++
	}

	a.logger.InfoContext(ctx, "screen complete",
		slog.Int("funds", len(codes)),
		slog.Int("results", len(results)),
		slog.Int("written", written),
	)
	if screenErr != nil {
		return fmt.Errorf("screen mode: %w", screenErr)
	}
	return nil
}

// MonitorMode runs the periodic screen until ctx is cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Screen.Interval.Duration))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runMonitor(ctx, deps)
	})
	return ignoreCanceled(g.Wait())
}

// ServerMode serves the HTTP API and the WebSocket stream.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return ignoreCanceled(g.Wait())
}

// FullMode runs the monitor, the HTTP server and the scheduled report export
// together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runMonitor(ctx, deps)
	})
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	if err := a.startReportCron(ctx, g, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	return ignoreCanceled(g.Wait())
}

// runMonitor screens immediately and then on every tick. A pass that finds
// the lease held by another replica is skipped.
func (a *App) runMonitor(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Screen.Interval.Duration
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.monitorPass(ctx, deps)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) monitorPass(ctx context.Context, deps *Dependencies) {
	unlock, err := deps.LockManager.Acquire(ctx, monitorLockKey, a.cfg.Screen.LeaseTTL.Duration)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "monitor: lease held elsewhere, skipping pass")
			return
		}
		a.logger.WarnContext(ctx, "monitor: acquire lease", slog.String("error", err.Error()))
		return
	}
	defer unlock()

	start := time.Now()
	codes, err := deps.Funds.FundCodes(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "monitor: fund codes", slog.String("error", err.Error()))
		return
	}

	results, screenErr := deps.Funds.ScreenFunds(ctx, codes)
	if screenErr != nil && len(results) == 0 {
		a.logger.WarnContext(ctx, "monitor: screen failed", slog.String("error", screenErr.Error()))
		return
	}

	batch := OpportunityBatch{
		At:            time.Now().UTC(),
		FundCount:     len(codes),
		Partial:       screenErr != nil,
		Opportunities: make([]domain.ArbitrageOpportunity, 0),
	}
	for _, r := range results {
		if r.HasOpportunity {
			batch.Opportunities = append(batch.Opportunities, r)
		}
	}

	// Publishing uses a fresh context so a cancelled pass still reports what
	// it gathered.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.publish(pubCtx, deps.SignalBus, domain.ChannelOpportunities, batch)
	a.publish(pubCtx, deps.SignalBus, domain.ChannelStatus, MonitorStatus{
		At:            batch.At,
		Mode:          a.cfg.Mode,
		Funds:         len(codes),
		Opportunities: len(batch.Opportunities),
		Duration:      time.Since(start),
	})

	a.logger.InfoContext(ctx, "monitor: pass complete",
		slog.Int("funds", len(codes)),
		slog.Int("results", len(results)),
		slog.Int("opportunities", len(batch.Opportunities)),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (a *App) publish(ctx context.Context, bus domain.SignalBus, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		a.logger.ErrorContext(ctx, "monitor: marshal payload",
			slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		a.logger.WarnContext(ctx, "monitor: publish",
			slog.String("channel", channel), slog.String("error", err.Error()))
	}
}

// startReportCron schedules report export on the configured cron expression,
// evaluated in China Standard Time. It is a no-op when reports are disabled
// or object storage is not wired.
func (a *App) startReportCron(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if !a.cfg.Report.Enabled {
		return nil
	}
	if deps.Reports == nil {
		a.logger.WarnContext(ctx, "report.enabled is true but s3 is disabled, skipping report export")
		return nil
	}

	c := cron.New(cron.WithLocation(domain.ChinaTZ))
	_, err := c.AddFunc(a.cfg.Report.Cron, func() {
		res, err := deps.Reports.Export(ctx, time.Now())
		if err != nil {
			a.logger.WarnContext(ctx, "report: export incomplete",
				slog.Int("written", len(res.Paths)),
				slog.String("error", err.Error()))
			return
		}
		a.logger.InfoContext(ctx, "report: exported",
			slog.Int("files", len(res.Paths)),
			slog.Int("records", res.Records))
	})
	if err != nil {
		return fmt.Errorf("report cron %q: %w", a.cfg.Report.Cron, err)
	}

	c.Start()
	a.logger.InfoContext(ctx, "report export scheduled", slog.String("cron", a.cfg.Report.Cron))

	g.Go(func() error {
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})
	return nil
}

// startHTTPServer builds the API server and the WebSocket hub and registers
// both with g. The server shuts down when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// A nil *ReportService must not become a non-nil interface.
	var reports handler.Reports
	if deps.Reports != nil {
		reports = deps.Reports
	}

	status := &handler.StatusHandler{
		Mode:      a.cfg.Mode,
		Store:     deps.StoreBackend,
		Redis:     deps.RedisEnabled,
		Reports:   deps.Reports != nil,
		Funds:     len(a.cfg.Funds),
		StartedAt: startedAt,
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		AdminKey:    a.cfg.Server.AdminKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Checks, a.logger),
		Status:  status,
		Funds:   handler.NewFundHandler(deps.Funds, a.logger),
		Records: handler.NewRecordHandler(deps.Records, a.logger),
		Admin:   handler.NewAdminHandler(deps.Records, reports, a.logger),
		Metrics: deps.Metrics.Handler(),
	}, server.Deps{
		Limiter:  deps.RateLimiter,
		Observer: deps.Metrics,
		Hub:      hub,
	}, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// ignoreCanceled treats a cancelled root context as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
