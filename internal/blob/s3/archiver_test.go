package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[path] = b
	return nil
}

func (m *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

type fakeAllocStore struct {
	runs    []domain.AllocationResult
	deleted int64
}

func (f *fakeAllocStore) ListBefore(_ context.Context, before time.Time) ([]domain.AllocationResult, error) {
	var out []domain.AllocationResult
	for _, r := range f.runs {
		if r.ExecutedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAllocStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []domain.AllocationResult
	for _, r := range f.runs {
		if r.ExecutedAt.Before(before) {
			f.deleted++
		} else {
			kept = append(kept, r)
		}
	}
	f.runs = kept
	return f.deleted, nil
}

type fakeOrderStore struct {
	orders []domain.Order
}

func (f *fakeOrderStore) ListBefore(_ context.Context, before time.Time) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.CreatedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var n int64
	var kept []domain.Order
	for _, o := range f.orders {
		if o.CreatedAt.Before(before) {
			n++
		} else {
			kept = append(kept, o)
		}
	}
	f.orders = kept
	return n, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveAllocationRuns(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeAllocStore{
		runs: []domain.AllocationResult{
			{
				RequestID:   "old-run",
				Status:      domain.AllocationStatusOK,
				ExecutedAt:  cutoff.Add(-48 * time.Hour),
				Action:      domain.AllocationActionSell,
				OrderID:     "ord-1",
				SlippagePct: decimal.RequireFromString("0.4"),
			},
			{
				RequestID:  "fresh-run",
				Status:     domain.AllocationStatusSkipped,
				ExecutedAt: cutoff.Add(time.Hour),
				Action:     domain.AllocationActionSkip,
			},
		},
	}
	w := &memWriter{}

	arch := NewArchiver(w, store, &fakeOrderStore{}, discardLogger())
	n, err := arch.ArchiveAllocationRuns(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Only the aged run went to cold storage; the fresh one stays in the DB.
	blob, ok := w.objects["archive/allocations/2026-08.jsonl"]
	require.True(t, ok)
	assert.Equal(t, 1, bytes.Count(blob, []byte("\n")))
	assert.Contains(t, string(blob), `"request_id":"old-run"`)
	assert.NotContains(t, string(blob), "fresh-run")

	require.Len(t, store.runs, 1)
	assert.Equal(t, "fresh-run", store.runs[0].RequestID)
}

func TestArchiveAllocationRunsNothingToDo(t *testing.T) {
	w := &memWriter{}
	arch := NewArchiver(w, &fakeAllocStore{}, &fakeOrderStore{}, discardLogger())

	n, err := arch.ArchiveAllocationRuns(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.objects)
}

func TestArchiveOrders(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeOrderStore{
		orders: []domain.Order{
			{
				OrderID:       "ord-old",
				ClientOrderID: "req-1",
				Symbol:        "QRLUSDT",
				Side:          domain.SideBuy,
				Type:          domain.OrderTypeLimit,
				Price:         decimal.RequireFromString("1.01"),
				Quantity:      decimal.RequireFromString("25"),
				Status:        domain.OrderStatusFilled,
				CreatedAt:     cutoff.Add(-time.Hour),
			},
		},
	}
	w := &memWriter{}

	arch := NewArchiver(w, &fakeAllocStore{}, store, discardLogger())
	n, err := arch.ArchiveOrders(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	blob := string(w.objects["archive/orders/2026-08.jsonl"])
	assert.True(t, strings.Contains(blob, `"order_id":"ord-old"`))
	assert.Empty(t, store.orders)
}
