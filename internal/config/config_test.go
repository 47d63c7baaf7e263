package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Screen.Workers)
	assert.Equal(t, 0.015, cfg.Fees.SubscribeFee)
	assert.Equal(t, 5*time.Second, cfg.Sources.Sina.Timeout.Duration)
	assert.NotEmpty(t, cfg.Funds)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Screen.Workers = 0
	cfg.Fees.RedeemFee = 1.5
	cfg.Store.Backend = "sqlite"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, "screen: workers must be >= 1")
	assert.Contains(t, msg, "fees: redeem_fee")
	assert.Contains(t, msg, `store: unknown backend "sqlite"`)
}

func TestValidateRequiresAnEnabledSource(t *testing.T) {
	cfg := Defaults()
	for _, p := range []*ProviderConfig{
		&cfg.Sources.EastmoneyStock, &cfg.Sources.EastmoneyArbitrage, &cfg.Sources.EastmoneyNav,
		&cfg.Sources.Sina, &cfg.Sources.Tencent, &cfg.Sources.Netease, &cfg.Sources.Fundgz,
	} {
		p.Enabled = false
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one source must be enabled")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"

[sources.tencent]
enabled = false
timeout = "2s"

[thresholds]
min_profit_rate = 0.01

[liquidation]
force_delisted = ["160632"]

[funds]
"501018" = "南方原油(LOF)"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("LOFBOT_SCREEN_WORKERS", "8")
	t.Setenv("LOFBOT_SOURCES_SINA_PRIORITY", "9")
	t.Setenv("LOFBOT_POSTGRES_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.False(t, cfg.Sources.Tencent.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Sources.Tencent.Timeout.Duration)
	assert.Equal(t, "http://qt.gtimg.cn", cfg.Sources.Tencent.BaseURL)
	assert.Equal(t, 0.01, cfg.Thresholds.MinProfitRate)
	assert.Equal(t, 0.01, cfg.Thresholds.MinPriceDiff)
	assert.Equal(t, []string{"160632"}, cfg.Liquidation.ForceDelisted)
	assert.Equal(t, "南方原油(LOF)", cfg.Funds["501018"])
	assert.Equal(t, 8, cfg.Screen.Workers)
	assert.Equal(t, 9, cfg.Sources.Sina.Priority)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "secret"
	cfg.Server.APIKey = "key"
	cfg.S3.SecretKey = ""

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.S3.SecretKey)

	out.Funds["999999"] = "x"
	_, leaked := cfg.Funds["999999"]
	assert.False(t, leaked)
	assert.Equal(t, "secret", cfg.Postgres.Password)
}
