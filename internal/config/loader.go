package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LOFBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LOFBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Sources ──
	setStr(&cfg.Sources.UserAgent, "LOFBOT_SOURCES_USER_AGENT")
	setStr(&cfg.Sources.FundListURL, "LOFBOT_SOURCES_FUND_LIST_URL")
	setProvider(&cfg.Sources.EastmoneyStock, "EASTMONEY_STOCK")
	setProvider(&cfg.Sources.EastmoneyArbitrage, "EASTMONEY_ARBITRAGE")
	setProvider(&cfg.Sources.EastmoneyNav, "EASTMONEY_NAV")
	setProvider(&cfg.Sources.Sina, "SINA")
	setProvider(&cfg.Sources.Tencent, "TENCENT")
	setProvider(&cfg.Sources.Netease, "NETEASE")
	setProvider(&cfg.Sources.Fundgz, "FUNDGZ")

	// ── Reconcile ──
	setFloat64(&cfg.Reconcile.MinPrice, "LOFBOT_RECONCILE_MIN_PRICE")
	setFloat64(&cfg.Reconcile.MaxPrice, "LOFBOT_RECONCILE_MAX_PRICE")
	setFloat64(&cfg.Reconcile.OutlierDeviation, "LOFBOT_RECONCILE_OUTLIER_DEVIATION")
	setInt(&cfg.Reconcile.OutlierMinSources, "LOFBOT_RECONCILE_OUTLIER_MIN_SOURCES")
	setStringSlice(&cfg.Reconcile.PreferredSources, "LOFBOT_RECONCILE_PREFERRED_SOURCES")

	// ── Liquidation ──
	setFloat64(&cfg.Liquidation.MaxDivergence, "LOFBOT_LIQUIDATION_MAX_DIVERGENCE")
	setInt(&cfg.Liquidation.MaxNavAgeDays, "LOFBOT_LIQUIDATION_MAX_NAV_AGE_DAYS")
	setStringSlice(&cfg.Liquidation.ForceDelisted, "LOFBOT_LIQUIDATION_FORCE_DELISTED")
	setStringSlice(&cfg.Liquidation.ForceActive, "LOFBOT_LIQUIDATION_FORCE_ACTIVE")

	// ── Fees / thresholds ──
	setFloat64(&cfg.Fees.BuyCommission, "LOFBOT_FEES_BUY_COMMISSION")
	setFloat64(&cfg.Fees.SellCommission, "LOFBOT_FEES_SELL_COMMISSION")
	setFloat64(&cfg.Fees.SubscribeFee, "LOFBOT_FEES_SUBSCRIBE_FEE")
	setFloat64(&cfg.Fees.RedeemFee, "LOFBOT_FEES_REDEEM_FEE")
	setFloat64(&cfg.Fees.StampTax, "LOFBOT_FEES_STAMP_TAX")
	setFloat64(&cfg.Thresholds.MinProfitRate, "LOFBOT_THRESHOLDS_MIN_PROFIT_RATE")
	setFloat64(&cfg.Thresholds.MinPriceDiff, "LOFBOT_THRESHOLDS_MIN_PRICE_DIFF")

	// ── Screen ──
	setInt(&cfg.Screen.Workers, "LOFBOT_SCREEN_WORKERS")
	setDuration(&cfg.Screen.Interval, "LOFBOT_SCREEN_INTERVAL")
	setDuration(&cfg.Screen.SnapshotTTL, "LOFBOT_SCREEN_SNAPSHOT_TTL")
	setDuration(&cfg.Screen.LeaseTTL, "LOFBOT_SCREEN_LEASE_TTL")
	setBool(&cfg.Screen.IncludeUpstream, "LOFBOT_SCREEN_INCLUDE_UPSTREAM")
	setBool(&cfg.Screen.OnlyOpportunities, "LOFBOT_SCREEN_ONLY_OPPORTUNITIES")
	setDuration(&cfg.Limits.CacheTTL, "LOFBOT_LIMITS_CACHE_TTL")

	// ── Store / Postgres ──
	setStr(&cfg.Store.Backend, "LOFBOT_STORE_BACKEND")
	setStr(&cfg.Postgres.DSN, "LOFBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "LOFBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LOFBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LOFBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LOFBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LOFBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LOFBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LOFBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LOFBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LOFBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LOFBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LOFBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LOFBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LOFBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LOFBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LOFBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LOFBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "LOFBOT_REDIS_KEY_PREFIX")

	// ── S3 / reports ──
	setBool(&cfg.S3.Enabled, "LOFBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LOFBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LOFBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "LOFBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LOFBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LOFBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LOFBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LOFBOT_S3_FORCE_PATH_STYLE")
	setBool(&cfg.Report.Enabled, "LOFBOT_REPORT_ENABLED")
	setStr(&cfg.Report.Cron, "LOFBOT_REPORT_CRON")
	setStr(&cfg.Report.Prefix, "LOFBOT_REPORT_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LOFBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LOFBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LOFBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "LOFBOT_SERVER_API_KEY")
	setStr(&cfg.Server.AdminKey, "LOFBOT_SERVER_ADMIN_KEY")
	setInt(&cfg.Server.RateLimit, "LOFBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "LOFBOT_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "LOFBOT_MODE")
	setStr(&cfg.LogLevel, "LOFBOT_LOG_LEVEL")
}

// setProvider applies LOFBOT_SOURCES_<NAME>_* overrides to one source.
func setProvider(p *ProviderConfig, name string) {
	prefix := "LOFBOT_SOURCES_" + name + "_"
	setBool(&p.Enabled, prefix+"ENABLED")
	setInt(&p.Priority, prefix+"PRIORITY")
	setDuration(&p.Timeout, prefix+"TIMEOUT")
	setStr(&p.BaseURL, prefix+"BASE_URL")
	setFloat64(&p.RatePerSecond, prefix+"RATE_PER_SECOND")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
