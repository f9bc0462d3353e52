package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	s3blob "github.com/qrlworks/qrlbot/internal/blob/s3"
	"github.com/qrlworks/qrlbot/internal/cache/redis"
	"github.com/qrlworks/qrlbot/internal/config"
	"github.com/qrlworks/qrlbot/internal/domain"
	"github.com/qrlworks/qrlbot/internal/notify"
	"github.com/qrlworks/qrlbot/internal/platform/mexc"
	"github.com/qrlworks/qrlbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Symbol   domain.Symbol
	Exchange domain.Exchange

	// Stores
	AllocationStore domain.AllocationStore
	OrderStore      domain.OrderStore

	// Caches
	QuoteCache  domain.QuoteCache
	BookCache   domain.OrderBookCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that archive to object storage.
func needsS3(mode string) bool {
	return mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	symbol, err := domain.NewSymbol(cfg.Pair.Base, cfg.Pair.Quote)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: pair: %w", err)
	}

	deps := &Dependencies{Symbol: symbol}

	// --- MEXC REST client ---
	timeout := 10 * time.Second
	if cfg.Mexc.TimeoutSec > 0 {
		timeout = time.Duration(cfg.Mexc.TimeoutSec) * time.Second
	}
	deps.Exchange = mexc.NewClient(
		cfg.Mexc.BaseURL,
		cfg.Mexc.ApiKey,
		cfg.Mexc.SecretKey,
		mexc.WithRecvWindow(cfg.Mexc.RecvWindow),
		mexc.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	// --- PostgreSQL ---
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

	pool := pgClient.Pool()
	deps.AllocationStore = postgres.NewAllocationStore(pool)
	deps.OrderStore = postgres.NewOrderStore(pool)

	// --- Redis ---
	redisOpts := []redis.Option{
		redis.WithPassword(cfg.Redis.Password),
		redis.WithDB(cfg.Redis.DB),
		redis.WithPoolSize(cfg.Redis.PoolSize),
		redis.WithMaxRetries(cfg.Redis.MaxRetries),
	}
	if cfg.Redis.TLSEnabled {
		redisOpts = append(redisOpts, redis.WithTLS())
	}
	redisClient, err := redis.New(ctx, cfg.Redis.Addr, redisOpts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.QuoteCache = redis.NewQuoteCache(redisClient)
	deps.BookCache = redis.NewOrderBookCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (archival modes only) ---
	if needsS3(cfg.Mode) {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.AllocationStore,
			deps.OrderStore,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
