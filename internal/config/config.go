// Package config defines the top-level configuration for the qrlbot service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by QRLBOT_* environment variables.
type Config struct {
	Mexc       MexcConfig       `toml:"mexc"`
	Pair       PairConfig       `toml:"pair"`
	Allocation AllocationConfig `toml:"allocation"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// MexcConfig holds MEXC API endpoints and credentials.
type MexcConfig struct {
	ApiKey     string `toml:"api_key"`
	SecretKey  string `toml:"secret_key"`
	BaseURL    string `toml:"base_url"`
	WsURL      string `toml:"ws_url"`
	RecvWindow int    `toml:"recv_window_ms"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// HasCredentials reports whether both API key and secret are configured.
func (m MexcConfig) HasCredentials() bool {
	return m.ApiKey != "" && m.SecretKey != ""
}

// PairConfig identifies the traded pair. The bot manages exactly one pair.
type PairConfig struct {
	Base  string `toml:"base"`
	Quote string `toml:"quote"`
}

// AllocationConfig holds the decision-engine knobs.
type AllocationConfig struct {
	// TargetRatio is the desired share of portfolio value held in the base
	// asset, in [0, 1].
	TargetRatio float64 `toml:"target_ratio"`
	// TolerancePct is the acceptable drift from target, in percent points.
	TolerancePct float64 `toml:"tolerance_pct"`
	// MinNotional / MaxNotional bound the per-run trade size in quote units.
	MinNotional float64 `toml:"min_notional"`
	MaxNotional float64 `toml:"max_notional"`
	// DepthLimit is the number of order-book levels fetched per side.
	DepthLimit int `toml:"depth_limit"`
	// SlippagePct is the maximum acceptable adverse slippage, in percent.
	SlippagePct float64 `toml:"slippage_pct"`
	// PriceBufferPct is the maker-price offset from top of book, as a
	// fraction (0.001 = 10 bps).
	PriceBufferPct float64 `toml:"price_buffer_pct"`
	// PriceCap optionally bounds the limit price (max for buys, min for
	// sells). Zero disables the cap.
	PriceCap float64 `toml:"price_cap"`
	// PriceTick and QuantityStep are the exchange increments for the pair.
	PriceTick    float64 `toml:"price_tick"`
	QuantityStep float64 `toml:"quantity_step"`
	// FreeOnly switches balance valuation to free balances only; the
	// default values free+locked totals.
	FreeOnly bool `toml:"free_only"`
	// DryRun plans and prices the order but never submits it.
	DryRun bool `toml:"dry_run"`
	// GuardPolicy is "coalesce" (concurrent triggers share the in-flight
	// result) or "reject" (busy triggers fail with a conflict).
	GuardPolicy string `toml:"guard_policy"`
	// Timeout bounds one allocation run end to end.
	Timeout duration `toml:"timeout"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for run archival.
type S3Config struct {
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	ArchiveEvery   duration `toml:"archive_every"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	APIKey         string   `toml:"api_key"`
	SchedulerToken string   `toml:"scheduler_token"`
}

// SchedulerConfig holds the in-process allocation trigger parameters.
type SchedulerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "20s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Mexc: MexcConfig{
			BaseURL:    "https://api.mexc.com",
			WsURL:      "wss://wbs.mexc.com/ws",
			RecvWindow: 5000,
			TimeoutSec: 10,
		},
		Pair: PairConfig{
			Base:  "QRL",
			Quote: "USDT",
		},
		Allocation: AllocationConfig{
			TargetRatio:    0.5,
			TolerancePct:   2.0,
			MinNotional:    10.0,
			MaxNotional:    100.0,
			DepthLimit:     50,
			SlippagePct:    1.0,
			PriceBufferPct: 0.001,
			PriceTick:      0.0001,
			QuantityStep:   0.01,
			GuardPolicy:    "coalesce",
			Timeout:        duration{20 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "qrlbot",
			User:          "qrlbot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "qrlbot-archive",
			ForcePathStyle: true,
			RetentionDays:  90,
			ArchiveEvery:   duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: duration{5 * time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"allocation_executed", "allocation_error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"trade":  true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validGuardPolicies enumerates the accepted single-flight guard policies.
var validGuardPolicies = map[string]bool{
	"coalesce": true,
	"reject":   true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, trade, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange. Trading modes need credentials; server mode can run without
	// them and reports allocation triggers as skipped.
	if c.Mexc.BaseURL == "" {
		errs = append(errs, "mexc: base_url must not be empty")
	}
	if c.Mexc.TimeoutSec <= 0 {
		errs = append(errs, "mexc: timeout_sec must be positive")
	}
	if c.Mexc.RecvWindow <= 0 {
		errs = append(errs, "mexc: recv_window_ms must be positive")
	}

	// Pair.
	if c.Pair.Base == "" || c.Pair.Quote == "" {
		errs = append(errs, "pair: base and quote must not be empty")
	}

	// Allocation knobs.
	a := c.Allocation
	if a.TargetRatio < 0 || a.TargetRatio > 1 {
		errs = append(errs, fmt.Sprintf("allocation: target_ratio must be in [0, 1], got %v", a.TargetRatio))
	}
	if a.TolerancePct < 0 {
		errs = append(errs, "allocation: tolerance_pct must be >= 0")
	}
	if a.MinNotional <= 0 {
		errs = append(errs, "allocation: min_notional must be > 0")
	}
	if a.MaxNotional < a.MinNotional {
		errs = append(errs, "allocation: max_notional must be >= min_notional")
	}
	if a.DepthLimit < 1 {
		errs = append(errs, "allocation: depth_limit must be >= 1")
	}
	if a.SlippagePct < 0 {
		errs = append(errs, "allocation: slippage_pct must be >= 0")
	}
	if a.PriceBufferPct < 0 {
		errs = append(errs, "allocation: price_buffer_pct must be >= 0")
	}
	if a.PriceTick <= 0 {
		errs = append(errs, "allocation: price_tick must be > 0")
	}
	if a.QuantityStep <= 0 {
		errs = append(errs, "allocation: quantity_step must be > 0")
	}
	if !validGuardPolicies[strings.ToLower(a.GuardPolicy)] {
		errs = append(errs, fmt.Sprintf("allocation: unknown guard_policy %q (valid: coalesce, reject)", a.GuardPolicy))
	}
	if a.Timeout.Duration <= 0 {
		errs = append(errs, "allocation: timeout must be positive")
	}

	// Postgres.
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
	if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must be in [0, pool_max_conns]")
	}

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 (only checked when archival can run, i.e. full mode).
	if strings.ToLower(c.Mode) == "full" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Server.
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Scheduler.
	if c.Scheduler.Enabled && c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be positive when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
