package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

type fakeTrigger struct {
	res domain.AllocationResult
	err error
}

func (f *fakeTrigger) Trigger(ctx context.Context) (domain.AllocationResult, error) {
	return f.res, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTriggerAllocationTerminalResult(t *testing.T) {
	trigger := &fakeTrigger{res: domain.AllocationResult{
		RequestID:   "req-1",
		Status:      domain.AllocationStatusRejected,
		ExecutedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Action:      domain.AllocationActionRejected,
		Reason:      "slippage 12.5% exceeds threshold 1%",
		SlippagePct: decimal.RequireFromString("12.5"),
	}}
	h := NewTasksHandler(trigger, discardLogger())

	rec := httptest.NewRecorder()
	h.TriggerAllocation(rec, httptest.NewRequest(http.MethodPost, "/tasks/allocation", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "12.5", body["slippage_pct"])
}

func TestTriggerAllocationStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"in flight", domain.ErrAllocationInFlight, http.StatusTooManyRequests},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"upstream", errors.New("mexc: GET /api/v3/account: 502"), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTasksHandler(&fakeTrigger{err: tc.err}, discardLogger())
			rec := httptest.NewRecorder()
			h.TriggerAllocation(rec, httptest.NewRequest(http.MethodPost, "/tasks/allocation", nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
