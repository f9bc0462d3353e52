package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The archiver only needs
// the time-ranged query and delete methods, not the full store interfaces;
// the Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// AllocationArchiveStore provides the allocation-run queries used by archival.
type AllocationArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.AllocationResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OrderArchiveStore provides the order queries used by archival.
type OrderArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Order, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver by querying the stores for aged
// rows, serializing them to JSONL, uploading the result to object storage,
// and deleting the archived rows only after the upload succeeded.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	allocations AllocationArchiveStore
	orders      OrderArchiveStore
	logger      *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	allocations AllocationArchiveStore,
	orders OrderArchiveStore,
	logger *slog.Logger,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		allocations: allocations,
		orders:      orders,
		logger:      logger,
	}
}

// archivedAllocation is the JSONL form of one archived allocation run.
type archivedAllocation struct {
	RequestID    string    `json:"request_id"`
	Status       string    `json:"status"`
	ExecutedAt   time.Time `json:"executed_at"`
	Action       string    `json:"action"`
	OrderID      string    `json:"order_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	SlippagePct  string    `json:"slippage_pct"`
	ExpectedFill string    `json:"expected_fill"`
}

// archivedOrder is the JSONL form of one archived order.
type archivedOrder struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	Price         string    `json:"price"`
	Quantity      string    `json:"quantity"`
	ExecutedQty   string    `json:"executed_qty"`
	Status        string    `json:"status"`
	TimeInForce   string    `json:"time_in_force"`
	CreatedAt     time.Time `json:"created_at"`
}

// ArchiveAllocationRuns archives runs executed before the cutoff to
// archive/allocations/YYYY-MM.jsonl, then removes them from the database.
func (a *ArchiveImpl) ArchiveAllocationRuns(ctx context.Context, before time.Time) (int64, error) {
	runs, err := a.allocations.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive allocation runs query: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}

	records := make([]archivedAllocation, 0, len(runs))
	for _, r := range runs {
		records = append(records, archivedAllocation{
			RequestID:    r.RequestID,
			Status:       string(r.Status),
			ExecutedAt:   r.ExecutedAt,
			Action:       string(r.Action),
			OrderID:      r.OrderID,
			Reason:       r.Reason,
			SlippagePct:  r.SlippagePct.String(),
			ExpectedFill: r.ExpectedFill.String(),
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive allocation runs marshal: %w", err)
	}

	path := archivePath("allocations", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive allocation runs upload: %w", err)
	}

	deleted, err := a.allocations.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(runs)), fmt.Errorf("s3blob: archive allocation runs delete: %w", err)
	}

	a.logger.Info("archived allocation runs",
		"path", path,
		"archived", len(runs),
		"deleted", deleted,
		"before", before.Format(time.RFC3339),
	)
	return int64(len(runs)), nil
}

// ArchiveOrders archives orders created before the cutoff to
// archive/orders/YYYY-MM.jsonl, then removes them from the database.
func (a *ArchiveImpl) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	orders, err := a.orders.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	records := make([]archivedOrder, 0, len(orders))
	for _, o := range orders {
		records = append(records, archivedOrder{
			OrderID:       o.OrderID,
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Side:          string(o.Side),
			Type:          string(o.Type),
			Price:         o.Price.String(),
			Quantity:      o.Quantity.String(),
			ExecutedQty:   o.ExecutedQty.String(),
			Status:        string(o.Status),
			TimeInForce:   string(o.TimeInForce),
			CreatedAt:     o.CreatedAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	path := archivePath("orders", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	deleted, err := a.orders.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(orders)), fmt.Errorf("s3blob: archive orders delete: %w", err)
	}

	a.logger.Info("archived orders",
		"path", path,
		"archived", len(orders),
		"deleted", deleted,
		"before", before.Format(time.RFC3339),
	)
	return int64(len(orders)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time, e.g. archive/allocations/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
