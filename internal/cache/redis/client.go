// Package redis implements domain cache interfaces using go-redis/v9: the
// quote and book caches behind the dashboard reads, the sliding-window rate
// limiter, and the distributed lock guarding the archival sweep.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Option tunes the connection beyond the address.
type Option func(*redis.Options)

// WithPassword sets the AUTH password.
func WithPassword(password string) Option {
	return func(o *redis.Options) { o.Password = password }
}

// WithDB selects a logical database.
func WithDB(db int) Option {
	return func(o *redis.Options) { o.DB = db }
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

// WithMaxRetries sets the per-command retry budget.
func WithMaxRetries(n int) Option {
	return func(o *redis.Options) { o.MaxRetries = n }
}

// WithTLS enables TLS with a modern minimum version.
func WithTLS() Option {
	return func(o *redis.Options) {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
}

// Client owns the shared go-redis connection the caches, limiter, and lock
// manager in this package are built on.
type Client struct {
	rdb *redis.Client
}

// New connects to addr, applies the options, and pings once to verify
// connectivity before handing the client out.
func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	options := newOptions(addr, opts...)
	rdb := redis.NewClient(options)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &Client{rdb: rdb}, nil
}

func newOptions(addr string, opts ...Option) *redis.Options {
	options := &redis.Options{Addr: addr}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
