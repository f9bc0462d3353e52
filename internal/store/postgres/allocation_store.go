package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// AllocationStore implements domain.AllocationStore using PostgreSQL.
type AllocationStore struct {
	pool *pgxpool.Pool
}

// NewAllocationStore creates a new AllocationStore backed by the given pool.
func NewAllocationStore(pool *pgxpool.Pool) *AllocationStore {
	return &AllocationStore{pool: pool}
}

// Create inserts one allocation run result.
func (s *AllocationStore) Create(ctx context.Context, res domain.AllocationResult) error {
	const query = `
		INSERT INTO allocation_runs (
			request_id, status, executed_at, action, order_id, reason,
			slippage_pct, expected_fill
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		res.RequestID, string(res.Status), res.ExecutedAt, string(res.Action),
		res.OrderID, res.Reason,
		res.SlippagePct.String(), res.ExpectedFill.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: create allocation run %s: %w", res.RequestID, err)
	}
	return nil
}

const allocationSelectCols = `request_id, status, executed_at, action,
	COALESCE(order_id, ''), reason, slippage_pct, expected_fill`

func scanAllocationFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.AllocationResult, error) {
	var res domain.AllocationResult
	var status, action string
	var slippage, fill decimal.Decimal

	err := scanner.Scan(
		&res.RequestID, &status, &res.ExecutedAt, &action,
		&res.OrderID, &res.Reason, &slippage, &fill,
	)
	if err != nil {
		return domain.AllocationResult{}, err
	}

	res.Status = domain.AllocationStatus(status)
	res.Action = domain.AllocationAction(action)
	res.SlippagePct = slippage
	res.ExpectedFill = fill
	return res, nil
}

func scanAllocationRows(rows pgx.Rows) ([]domain.AllocationResult, error) {
	var results []domain.AllocationResult
	for rows.Next() {
		res, err := scanAllocationFromRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListRecent returns the most recent runs, newest first.
func (s *AllocationStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.AllocationResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+allocationSelectCols+` FROM allocation_runs
		 ORDER BY executed_at DESC
		 LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list allocation runs: %w", err)
	}
	defer rows.Close()

	results, err := scanAllocationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan allocation runs: %w", err)
	}
	return results, nil
}

// ListBefore returns runs executed strictly before the cutoff, oldest first,
// for archival.
func (s *AllocationStore) ListBefore(ctx context.Context, before time.Time) ([]domain.AllocationResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+allocationSelectCols+` FROM allocation_runs
		 WHERE executed_at < $1
		 ORDER BY executed_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list allocation runs before %s: %w", before, err)
	}
	defer rows.Close()

	results, err := scanAllocationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan allocation runs before %s: %w", before, err)
	}
	return results, nil
}

// DeleteBefore removes runs executed strictly before the cutoff. Called only
// after a successful archive upload.
func (s *AllocationStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM allocation_runs WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete allocation runs before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.AllocationStore = (*AllocationStore)(nil)
