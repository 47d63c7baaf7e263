package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/lofbot/internal/blob/s3"
	"github.com/alanyoungcy/lofbot/internal/cache/local"
	"github.com/alanyoungcy/lofbot/internal/cache/redis"
	"github.com/alanyoungcy/lofbot/internal/config"
	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/limits"
	"github.com/alanyoungcy/lofbot/internal/metrics"
	"github.com/alanyoungcy/lofbot/internal/platform/eastmoney"
	"github.com/alanyoungcy/lofbot/internal/platform/fundgz"
	"github.com/alanyoungcy/lofbot/internal/platform/netease"
	"github.com/alanyoungcy/lofbot/internal/platform/sina"
	"github.com/alanyoungcy/lofbot/internal/platform/tencent"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
	"github.com/alanyoungcy/lofbot/internal/reconcile"
	"github.com/alanyoungcy/lofbot/internal/server/handler"
	"github.com/alanyoungcy/lofbot/internal/service"
	"github.com/alanyoungcy/lofbot/internal/source"
	"github.com/alanyoungcy/lofbot/internal/store/memory"
	"github.com/alanyoungcy/lofbot/internal/store/postgres"
)

// metricsNamespace prefixes every exported Prometheus series.
const metricsNamespace = "lofbot"

// Dependencies bundles everything the operating modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Sources *source.Set
	Metrics *metrics.Collector

	// Caches and coordination. Backed by Redis when enabled, otherwise by
	// in-process implementations.
	SignalBus   domain.SignalBus
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// Services
	Funds   *service.FundService
	Records *service.RecordService
	Reports *service.ReportService // nil unless S3 is enabled

	// Health probes keyed by dependency name.
	Checks map[string]handler.Pinger

	StoreBackend string
	RedisEnabled bool
}

// pingFunc adapts a health function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Checks:       make(map[string]handler.Pinger),
		StoreBackend: cfg.Store.Backend,
		RedisEnabled: cfg.Redis.Enabled,
	}
	deps.Metrics = metrics.NewCollector(metricsNamespace)
	deps.Sources = buildSources(cfg.Sources)

	// --- Redis or in-process caches ---
	var (
		snapshots  domain.SnapshotCache
		limitCache domain.LimitCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		snapshots = redis.NewSnapshotCache(redisClient)
		limitCache = redis.NewLimitCache(redisClient)
		deps.Checks["redis"] = redisClient
	} else {
		deps.SignalBus = local.NewSignalBus()
		deps.LockManager = local.NewLockManager()
		deps.RateLimiter = local.NewRateLimiter()
		snapshots = local.NewSnapshotCache()
		limitCache = local.NewLimitCache()
	}

	// --- Record store ---
	var store domain.RecordStore
	switch cfg.Store.Backend {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		store = postgres.NewRecordStore(pgClient)
		deps.Checks["postgres"] = pgClient.Pool()
	default:
		store = memory.NewRecordStore()
	}

	// --- Core services ---
	gatherer := reconcile.NewGatherer(deps.Sources, reconcileOptions(cfg.Reconcile), deps.Metrics.ObserveProviderCall, logger)
	lookup := limits.NewLookup(deps.Sources, limitCache, cfg.Limits.CacheTTL.Duration, logger)

	deps.Funds = service.NewFundService(gatherer, deps.Sources, lookup, snapshots, deps.Metrics, service.FundConfig{
		Funds:           cfg.Funds,
		Fees:            domain.FeeSchedule(cfg.Fees),
		Thresholds:      domain.Thresholds{MinPriceDiff: cfg.Thresholds.MinPriceDiff, MinProfitRate: cfg.Thresholds.MinProfitRate},
		Liquidation:     liquidationOptions(cfg.Liquidation),
		Workers:         cfg.Screen.Workers,
		SnapshotTTL:     cfg.Screen.SnapshotTTL.Duration,
		IncludeUpstream: cfg.Screen.IncludeUpstream,
	}, logger)
	deps.Records = service.NewRecordService(store, lookup, deps.Metrics, logger)

	// --- S3 report export ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		exporter := s3blob.NewExporter(s3blob.NewWriter(s3Client), cfg.Report.Prefix)
		deps.Reports = service.NewReportService(deps.Funds, deps.Records, exporter, s3blob.NewReader(s3Client), logger)
		deps.Checks["s3"] = pingFunc(s3Client.Health)
	}

	logger.Info("wire: dependencies ready",
		slog.Int("providers", len(deps.Sources.Providers())),
		slog.String("store", cfg.Store.Backend),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("s3", cfg.S3.Enabled),
	)
	return deps, cleanup, nil
}

// buildSources registers one provider per configured source section.
// Disabled sections are kept in the set so Rank stays stable, but never
// called.
func buildSources(sc config.SourcesConfig) *source.Set {
	conn := func(p config.ProviderConfig) upstream.Config {
		return upstream.Config{
			BaseURL:       p.BaseURL,
			Timeout:       p.Timeout.Duration,
			UserAgent:     sc.UserAgent,
			RatePerSecond: p.RatePerSecond,
			Burst:         p.Burst,
		}
	}
	provider := func(id string, p config.ProviderConfig, impl any) source.Provider {
		return source.Provider{
			ID:       id,
			Priority: p.Priority,
			Enabled:  p.Enabled,
			Timeout:  p.Timeout.Duration,
			Impl:     impl,
		}
	}

	return source.NewSet(
		provider("eastmoney_stock", sc.EastmoneyStock, eastmoney.NewStockClient(conn(sc.EastmoneyStock))),
		provider("eastmoney_arbitrage", sc.EastmoneyArbitrage, eastmoney.NewArbitrageClient(conn(sc.EastmoneyArbitrage))),
		provider("eastmoney_nav", sc.EastmoneyNav, eastmoney.NewFundClient(conn(sc.EastmoneyNav), sc.FundListURL)),
		provider("sina", sc.Sina, sina.New(conn(sc.Sina))),
		provider("tencent", sc.Tencent, tencent.New(conn(sc.Tencent))),
		provider("netease", sc.Netease, netease.New(conn(sc.Netease))),
		provider("fundgz", sc.Fundgz, fundgz.New(conn(sc.Fundgz))),
	)
}

func reconcileOptions(rc config.ReconcileConfig) reconcile.Options {
	return reconcile.Options{
		MinPrice:          rc.MinPrice,
		MaxPrice:          rc.MaxPrice,
		OutlierDeviation:  rc.OutlierDeviation,
		OutlierMinSources: rc.OutlierMinSources,
		HighSpread:        rc.HighSpread,
		MediumSpread:      rc.MediumSpread,
		NavTolerance:      rc.NavTolerance,
		PreferredSources:  rc.PreferredSources,
	}
}

func liquidationOptions(lc config.LiquidationConfig) reconcile.LiquidationOptions {
	return reconcile.LiquidationOptions{
		MaxDivergence: lc.MaxDivergence,
		MaxNavAge:     time.Duration(lc.MaxNavAgeDays) * 24 * time.Hour,
		ForceDelisted: toSet(lc.ForceDelisted),
		ForceActive:   toSet(lc.ForceActive),
	}
}

func toSet(codes []string) map[string]bool {
	if len(codes) == 0 {
		return nil
	}
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		out[c] = true
	}
	return out
}
