// Package config defines the top-level configuration for the LOF arbitrage
// monitor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LOFBOT_* environment variables.
type Config struct {
	Sources     SourcesConfig     `toml:"sources"`
	Reconcile   ReconcileConfig   `toml:"reconcile"`
	Liquidation LiquidationConfig `toml:"liquidation"`
	Fees        FeesConfig        `toml:"fees"`
	Thresholds  ThresholdsConfig  `toml:"thresholds"`
	Screen      ScreenConfig      `toml:"screen"`
	Limits      LimitsConfig      `toml:"limits"`
	Store       StoreConfig       `toml:"store"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Report      ReportConfig      `toml:"report"`
	Server      ServerConfig      `toml:"server"`
	// Funds maps fund code to display name for the monitored universe.
	Funds    map[string]string `toml:"funds"`
	Mode     string            `toml:"mode"`
	LogLevel string            `toml:"log_level"`
}

// ProviderConfig controls one upstream market-data source.
type ProviderConfig struct {
	Enabled  bool     `toml:"enabled"`
	Priority int      `toml:"priority"`
	Timeout  duration `toml:"timeout"`
	BaseURL  string   `toml:"base_url"`
	// RatePerSecond caps outbound requests; 0 disables throttling.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// SourcesConfig lists every upstream source. Lower priority numbers are
// preferred.
type SourcesConfig struct {
	UserAgent string `toml:"user_agent"`
	// FundListURL is the eastmoney fund code search script.
	FundListURL string `toml:"fund_list_url"`

	EastmoneyStock     ProviderConfig `toml:"eastmoney_stock"`
	EastmoneyArbitrage ProviderConfig `toml:"eastmoney_arbitrage"`
	EastmoneyNav       ProviderConfig `toml:"eastmoney_nav"`
	Sina               ProviderConfig `toml:"sina"`
	Tencent            ProviderConfig `toml:"tencent"`
	Netease            ProviderConfig `toml:"netease"`
	Fundgz             ProviderConfig `toml:"fundgz"`
}

// ReconcileConfig tunes cross-source quote and NAV selection.
type ReconcileConfig struct {
	MinPrice          float64  `toml:"min_price"`
	MaxPrice          float64  `toml:"max_price"`
	OutlierDeviation  float64  `toml:"outlier_deviation"`
	OutlierMinSources int      `toml:"outlier_min_sources"`
	HighSpread        float64  `toml:"high_spread"`
	MediumSpread      float64  `toml:"medium_spread"`
	NavTolerance      float64  `toml:"nav_tolerance"`
	PreferredSources  []string `toml:"preferred_sources"`
}

// LiquidationConfig tunes the delisting heuristic.
type LiquidationConfig struct {
	MaxDivergence float64 `toml:"max_divergence"`
	MaxNavAgeDays int     `toml:"max_nav_age_days"`
	// ForceDelisted funds are always treated as liquidated.
	ForceDelisted []string `toml:"force_delisted"`
	// ForceActive funds skip every heuristic except "no data at all".
	ForceActive []string `toml:"force_active"`
}

// FeesConfig holds fractional trading costs.
type FeesConfig struct {
	BuyCommission  float64 `toml:"buy_commission"`
	SellCommission float64 `toml:"sell_commission"`
	SubscribeFee   float64 `toml:"subscribe_fee"`
	RedeemFee      float64 `toml:"redeem_fee"`
	StampTax       float64 `toml:"stamp_tax"`
}

// ThresholdsConfig gates what counts as an opportunity.
type ThresholdsConfig struct {
	MinProfitRate float64 `toml:"min_profit_rate"`
	MinPriceDiff  float64 `toml:"min_price_diff"`
}

// ScreenConfig controls batch screening and the monitor loop.
type ScreenConfig struct {
	Workers     int      `toml:"workers"`
	Interval    duration `toml:"interval"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
	LeaseTTL    duration `toml:"lease_ttl"`
	// IncludeUpstream merges the upstream LOF list into the fund universe.
	IncludeUpstream   bool `toml:"include_upstream"`
	OnlyOpportunities bool `toml:"only_opportunities"`
}

// LimitsConfig controls purchase-limit lookups.
type LimitsConfig struct {
	CacheTTL duration `toml:"cache_ttl"`
}

// StoreConfig selects the record persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; without
// it caches and locks fall back to in-process implementations.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ReportConfig controls scheduled report export to object storage.
type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
	Prefix  string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	AdminKey    string   `toml:"admin_key"`
	// RateLimit is the per-IP request budget per RateWindow; 0 disables it.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

func provider(priority int, baseURL string) ProviderConfig {
	return ProviderConfig{
		Enabled:       true,
		Priority:      priority,
		Timeout:       duration{5 * time.Second},
		BaseURL:       baseURL,
		RatePerSecond: 10,
		Burst:         5,
	}
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	netease := provider(6, "http://api.money.126.net")
	netease.Enabled = false

	return Config{
		Sources: SourcesConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			FundListURL:        "http://fund.eastmoney.com/js/fundcode_search.js",
			EastmoneyStock:     provider(2, "http://push2.eastmoney.com"),
			EastmoneyArbitrage: provider(3, "https://zqhdplus.eastmoney.com"),
			EastmoneyNav:       provider(1, "http://api.fund.eastmoney.com"),
			Sina:               provider(1, "http://hq.sinajs.cn"),
			Tencent:            provider(4, "http://qt.gtimg.cn"),
			Netease:            netease,
			Fundgz:             provider(2, "http://fundgz.1234567.com.cn"),
		},
		Reconcile: ReconcileConfig{
			MinPrice:          0.01,
			MaxPrice:          100,
			OutlierDeviation:  0.05,
			OutlierMinSources: 3,
			HighSpread:        0.01,
			MediumSpread:      0.03,
			NavTolerance:      0.0001,
			PreferredSources:  []string{"sina", "eastmoney_stock", "eastmoney_arbitrage"},
		},
		Liquidation: LiquidationConfig{
			MaxDivergence: 0.5,
			MaxNavAgeDays: 30,
		},
		Fees: FeesConfig{
			BuyCommission:  0.0003,
			SellCommission: 0.0003,
			SubscribeFee:   0.015,
			RedeemFee:      0.005,
			StampTax:       0.001,
		},
		Thresholds: ThresholdsConfig{
			MinProfitRate: 0.005,
			MinPriceDiff:  0.01,
		},
		Screen: ScreenConfig{
			Workers:     30,
			Interval:    duration{60 * time.Second},
			SnapshotTTL: duration{30 * time.Second},
			LeaseTTL:    duration{55 * time.Second},
		},
		Limits: LimitsConfig{
			CacheTTL: duration{5 * time.Minute},
		},
		Store: StoreConfig{Backend: "memory"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "lofbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "lofbot",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "lofbot-reports",
			ForcePathStyle: true,
		},
		Report: ReportConfig{
			Cron:   "30 15 * * 1-5",
			Prefix: "reports",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Funds:    defaultFunds(),
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"screen":  true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: screen, monitor, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Sources
	enabled := 0
	for name, p := range c.Sources.byName() {
		if !p.Enabled {
			continue
		}
		enabled++
		if p.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("sources.%s: base_url must not be empty", name))
		}
		if p.Timeout.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("sources.%s: timeout must be > 0", name))
		}
		if p.RatePerSecond < 0 {
			errs = append(errs, fmt.Sprintf("sources.%s: rate_per_second must be >= 0", name))
		}
	}
	if enabled == 0 {
		errs = append(errs, "sources: at least one source must be enabled")
	}

	// Reconcile
	if c.Reconcile.MinPrice < 0 || c.Reconcile.MaxPrice <= c.Reconcile.MinPrice {
		errs = append(errs, "reconcile: require 0 <= min_price < max_price")
	}
	if c.Reconcile.OutlierDeviation <= 0 {
		errs = append(errs, "reconcile: outlier_deviation must be > 0")
	}
	if c.Reconcile.HighSpread <= 0 || c.Reconcile.MediumSpread < c.Reconcile.HighSpread {
		errs = append(errs, "reconcile: require 0 < high_spread <= medium_spread")
	}

	// Liquidation
	if c.Liquidation.MaxDivergence <= 0 {
		errs = append(errs, "liquidation: max_divergence must be > 0")
	}
	if c.Liquidation.MaxNavAgeDays < 1 {
		errs = append(errs, "liquidation: max_nav_age_days must be >= 1")
	}

	// Fees
	for name, v := range map[string]float64{
		"buy_commission":  c.Fees.BuyCommission,
		"sell_commission": c.Fees.SellCommission,
		"subscribe_fee":   c.Fees.SubscribeFee,
		"redeem_fee":      c.Fees.RedeemFee,
		"stamp_tax":       c.Fees.StampTax,
	} {
		if v < 0 || v >= 1 {
			errs = append(errs, fmt.Sprintf("fees: %s must be in [0, 1), got %v", name, v))
		}
	}

	// Thresholds
	if c.Thresholds.MinPriceDiff < 0 {
		errs = append(errs, "thresholds: min_price_diff must be >= 0")
	}

	// Screen
	if c.Screen.Workers < 1 {
		errs = append(errs, "screen: workers must be >= 1")
	}
	if c.Screen.Interval.Duration <= 0 {
		errs = append(errs, "screen: interval must be > 0")
	}

	// Store
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: memory, postgres)", c.Store.Backend))
	}
	if strings.EqualFold(c.Store.Backend, "postgres") {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 / reports
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}
	if c.Report.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "report: requires s3.enabled")
		}
		if strings.TrimSpace(c.Report.Cron) == "" {
			errs = append(errs, "report: cron must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(c.Funds) == 0 && !c.Screen.IncludeUpstream {
		errs = append(errs, "funds: empty fund list and screen.include_upstream is false")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// byName returns every provider section keyed by source ID.
func (s SourcesConfig) byName() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"eastmoney_stock":     s.EastmoneyStock,
		"eastmoney_arbitrage": s.EastmoneyArbitrage,
		"eastmoney_nav":       s.EastmoneyNav,
		"sina":                s.Sina,
		"tencent":             s.Tencent,
		"netease":             s.Netease,
		"fundgz":              s.Fundgz,
	}
}
