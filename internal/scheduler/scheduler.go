// Package scheduler runs the periodic background jobs: the allocation tick
// and the archival sweep.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// AllocationTrigger is the guarded allocation entry point the runner ticks.
type AllocationTrigger interface {
	Trigger(ctx context.Context) (domain.AllocationResult, error)
}

// Runner invokes the guarded allocation run on a fixed interval. Outcomes
// are logged; a failed or rejected run never stops the loop.
type Runner struct {
	allocations AllocationTrigger
	interval    time.Duration
	logger      *slog.Logger
}

// NewRunner creates a Runner ticking at the given interval.
func NewRunner(allocations AllocationTrigger, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		allocations: allocations,
		interval:    interval,
		logger:      logger.With(slog.String("component", "scheduler")),
	}
}

// Run ticks until the context is cancelled. The first run happens after one
// full interval so a restart loop cannot hammer the exchange.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("allocation scheduler started", slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("allocation scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	res, err := r.allocations.Trigger(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAllocationInFlight) {
			r.logger.Info("allocation tick skipped, run already in flight")
			return
		}
		r.logger.Error("allocation tick failed", slog.String("error", err.Error()))
		return
	}

	r.logger.Info("allocation tick finished",
		slog.String("request_id", res.RequestID),
		slog.String("status", string(res.Status)),
		slog.String("action", string(res.Action)),
		slog.String("order_id", res.OrderID),
	)
}

// ArchiveNotifier reports a completed archival sweep to operator channels.
type ArchiveNotifier interface {
	NotifyArchive(ctx context.Context, runs, orders int64) error
}

// ArchiveRunner sweeps aged allocation runs and orders out of the database
// into blob storage on a fixed interval. The distributed lock ensures only
// one instance archives when several share the database.
type ArchiveRunner struct {
	archiver      domain.Archiver
	locks         domain.LockManager
	notifier      ArchiveNotifier
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

// NewArchiveRunner creates an ArchiveRunner. locks and notifier may be nil
// for single-instance deployments and silent sweeps.
func NewArchiveRunner(
	archiver domain.Archiver,
	locks domain.LockManager,
	notifier ArchiveNotifier,
	retentionDays int,
	interval time.Duration,
	logger *slog.Logger,
) *ArchiveRunner {
	return &ArchiveRunner{
		archiver:      archiver,
		locks:         locks,
		notifier:      notifier,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger.With(slog.String("component", "archive_runner")),
	}
}

// Run sweeps until the context is cancelled.
func (r *ArchiveRunner) Run(ctx context.Context) error {
	r.logger.Info("archive runner started",
		slog.Duration("interval", r.interval),
		slog.Int("retention_days", r.retentionDays),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("archive runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error("archive sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// sweep executes one archive pass under the distributed lock.
func (r *ArchiveRunner) sweep(ctx context.Context) error {
	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, "archive:sweep", r.interval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				r.logger.Info("archive sweep skipped, another instance holds the lock")
				return nil
			}
			return err
		}
		defer unlock()
	}

	cutoff := time.Now().UTC().Add(-time.Duration(r.retentionDays) * 24 * time.Hour)
	r.logger.Info("starting archive sweep", slog.Time("cutoff", cutoff))

	runsArchived, err := r.archiver.ArchiveAllocationRuns(ctx, cutoff)
	if err != nil {
		return err
	}

	ordersArchived, err := r.archiver.ArchiveOrders(ctx, cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("archive sweep complete",
		slog.Int64("runs_archived", runsArchived),
		slog.Int64("orders_archived", ordersArchived),
	)

	if r.notifier != nil && runsArchived+ordersArchived > 0 {
		if err := r.notifier.NotifyArchive(ctx, runsArchived, ordersArchived); err != nil {
			r.logger.Warn("archive notification failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
