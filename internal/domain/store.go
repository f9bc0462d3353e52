package domain

import (
	"context"
	"time"
)

// ListOpts carries standard pagination parameters for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AllocationStore persists allocation run history.
type AllocationStore interface {
	Create(ctx context.Context, res AllocationResult) error
	ListRecent(ctx context.Context, opts ListOpts) ([]AllocationResult, error)
	// ListBefore returns runs executed strictly before the cutoff, for
	// archival.
	ListBefore(ctx context.Context, before time.Time) ([]AllocationResult, error)
	// DeleteBefore removes runs executed strictly before the cutoff and
	// returns the number of rows removed. Called only after a successful
	// archive upload.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OrderStore persists orders the bot has submitted.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus) error
	GetByOrderID(ctx context.Context, orderID string) (Order, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Order, error)
	ListBefore(ctx context.Context, before time.Time) ([]Order, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
