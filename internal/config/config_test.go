package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "QRL", cfg.Pair.Base)
	assert.Equal(t, "USDT", cfg.Pair.Quote)
	assert.Equal(t, 0.5, cfg.Allocation.TargetRatio)
	assert.Equal(t, "coalesce", cfg.Allocation.GuardPolicy)
	assert.Equal(t, 20*time.Second, cfg.Allocation.Timeout.Duration)
	assert.Equal(t, "https://api.mexc.com", cfg.Mexc.BaseURL)
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"
log_level = "debug"

[mexc]
api_key = "k"
secret_key = "s"

[pair]
base = "QRL"
quote = "USDT"

[allocation]
target_ratio = 0.6
tolerance_pct = 1.5
guard_policy = "reject"
timeout = "30s"

[s3]
bucket = "runs"

[scheduler]
enabled = true
interval = "2m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Mexc.HasCredentials())
	assert.Equal(t, 0.6, cfg.Allocation.TargetRatio)
	assert.Equal(t, 1.5, cfg.Allocation.TolerancePct)
	assert.Equal(t, "reject", cfg.Allocation.GuardPolicy)
	assert.Equal(t, 30*time.Second, cfg.Allocation.Timeout.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval.Duration)

	// Unset fields fall back to defaults.
	assert.Equal(t, 50, cfg.Allocation.DepthLimit)
	assert.Equal(t, "https://api.mexc.com", cfg.Mexc.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QRLBOT_MEXC_API_KEY", "envkey")
	t.Setenv("QRLBOT_MEXC_SECRET_KEY", "envsecret")
	t.Setenv("QRLBOT_ALLOCATION_TARGET_RATIO", "0.7")
	t.Setenv("QRLBOT_ALLOCATION_DRY_RUN", "true")
	t.Setenv("QRLBOT_ALLOCATION_TIMEOUT", "45s")
	t.Setenv("QRLBOT_REDIS_ADDR", "redis:6379")
	t.Setenv("QRLBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QRLBOT_MODE", "trade")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "envkey", cfg.Mexc.ApiKey)
	assert.Equal(t, "envsecret", cfg.Mexc.SecretKey)
	assert.Equal(t, 0.7, cfg.Allocation.TargetRatio)
	assert.True(t, cfg.Allocation.DryRun)
	assert.Equal(t, 45*time.Second, cfg.Allocation.Timeout.Duration)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "trade", cfg.Mode)
}

func TestEnvOverridesIgnoreBadValues(t *testing.T) {
	t.Setenv("QRLBOT_ALLOCATION_TARGET_RATIO", "not-a-number")
	t.Setenv("QRLBOT_ALLOCATION_DRY_RUN", "maybe")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0.5, cfg.Allocation.TargetRatio)
	assert.False(t, cfg.Allocation.DryRun)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Allocation.TargetRatio = 1.5
	cfg.Allocation.MinNotional = 0
	cfg.Allocation.GuardPolicy = "maybe"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "target_ratio")
	assert.Contains(t, err.Error(), "min_notional")
	assert.Contains(t, err.Error(), "guard_policy")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidateFullModeRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}
