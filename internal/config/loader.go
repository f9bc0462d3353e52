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
// built-in defaults, applies QRLBOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known QRLBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── MEXC ──
	setStr(&cfg.Mexc.ApiKey, "QRLBOT_MEXC_API_KEY")
	setStr(&cfg.Mexc.SecretKey, "QRLBOT_MEXC_SECRET_KEY")
	setStr(&cfg.Mexc.BaseURL, "QRLBOT_MEXC_BASE_URL")
	setStr(&cfg.Mexc.WsURL, "QRLBOT_MEXC_WS_URL")
	setInt(&cfg.Mexc.RecvWindow, "QRLBOT_MEXC_RECV_WINDOW_MS")
	setInt(&cfg.Mexc.TimeoutSec, "QRLBOT_MEXC_TIMEOUT_SEC")

	// ── Pair ──
	setStr(&cfg.Pair.Base, "QRLBOT_PAIR_BASE")
	setStr(&cfg.Pair.Quote, "QRLBOT_PAIR_QUOTE")

	// ── Allocation ──
	setFloat64(&cfg.Allocation.TargetRatio, "QRLBOT_ALLOCATION_TARGET_RATIO")
	setFloat64(&cfg.Allocation.TolerancePct, "QRLBOT_ALLOCATION_TOLERANCE_PCT")
	setFloat64(&cfg.Allocation.MinNotional, "QRLBOT_ALLOCATION_MIN_NOTIONAL")
	setFloat64(&cfg.Allocation.MaxNotional, "QRLBOT_ALLOCATION_MAX_NOTIONAL")
	setInt(&cfg.Allocation.DepthLimit, "QRLBOT_ALLOCATION_DEPTH_LIMIT")
	setFloat64(&cfg.Allocation.SlippagePct, "QRLBOT_ALLOCATION_SLIPPAGE_PCT")
	setFloat64(&cfg.Allocation.PriceBufferPct, "QRLBOT_ALLOCATION_PRICE_BUFFER_PCT")
	setFloat64(&cfg.Allocation.PriceCap, "QRLBOT_ALLOCATION_PRICE_CAP")
	setFloat64(&cfg.Allocation.PriceTick, "QRLBOT_ALLOCATION_PRICE_TICK")
	setFloat64(&cfg.Allocation.QuantityStep, "QRLBOT_ALLOCATION_QUANTITY_STEP")
	setBool(&cfg.Allocation.FreeOnly, "QRLBOT_ALLOCATION_FREE_ONLY")
	setBool(&cfg.Allocation.DryRun, "QRLBOT_ALLOCATION_DRY_RUN")
	setStr(&cfg.Allocation.GuardPolicy, "QRLBOT_ALLOCATION_GUARD_POLICY")
	setDuration(&cfg.Allocation.Timeout, "QRLBOT_ALLOCATION_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "QRLBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "QRLBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "QRLBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "QRLBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "QRLBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "QRLBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "QRLBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "QRLBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "QRLBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "QRLBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "QRLBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "QRLBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "QRLBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "QRLBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "QRLBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "QRLBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "QRLBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "QRLBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "QRLBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "QRLBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "QRLBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "QRLBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "QRLBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "QRLBOT_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.ArchiveEvery, "QRLBOT_S3_ARCHIVE_EVERY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "QRLBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "QRLBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "QRLBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "QRLBOT_SERVER_API_KEY")
	setStr(&cfg.Server.SchedulerToken, "QRLBOT_SERVER_SCHEDULER_TOKEN")

	// ── Scheduler ──
	setBool(&cfg.Scheduler.Enabled, "QRLBOT_SCHEDULER_ENABLED")
	setDuration(&cfg.Scheduler.Interval, "QRLBOT_SCHEDULER_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "QRLBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "QRLBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "QRLBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "QRLBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "QRLBOT_MODE")
	setStr(&cfg.LogLevel, "QRLBOT_LOG_LEVEL")
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
