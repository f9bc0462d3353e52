package domain

import (
	"context"
	"time"
)

// QuoteCache stores the latest top-of-book quote per symbol for the market
// endpoints and dashboard. Allocation runs never read it; they always fetch
// fresh data from the exchange.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	// GetQuote returns ErrNotFound when no quote has been stored yet.
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// OrderBookCache stores the latest depth snapshot per symbol.
type OrderBookCache interface {
	SetSnapshot(ctx context.Context, book OrderBook) error
	GetSnapshot(ctx context.Context, symbol string) (OrderBook, error)
}

// RateLimiter limits operations per key within a time window.
type RateLimiter interface {
	// Allow reports whether one more request under key is permitted, and
	// counts it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides cross-instance mutual exclusion for background jobs
// (archival). It is not the allocation single-flight guard: that one is
// strictly in-process, and multi-instance order safety rests on the
// client order ID idempotency key.
type LockManager interface {
	// Acquire returns an unlock func on success or ErrLockHeld when the lock
	// is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
