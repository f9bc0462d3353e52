package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// AllocationTrigger defines the guarded run entry point the tasks handler
// invokes.
type AllocationTrigger interface {
	Trigger(ctx context.Context) (domain.AllocationResult, error)
}

// TasksHandler serves the scheduler-facing task trigger endpoints.
type TasksHandler struct {
	allocations AllocationTrigger
	logger      *slog.Logger
}

// NewTasksHandler creates a TasksHandler with the given trigger.
func NewTasksHandler(allocations AllocationTrigger, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{allocations: allocations, logger: logger}
}

// TriggerAllocation runs one guarded allocation and returns the terminal
// result. Every decision outcome, including skip and reject, is a 200; the
// non-200 statuses are reserved for the run not happening at all: 429 when
// the guard refuses a concurrent trigger, 504 when the run times out, 502
// when the exchange cannot be reached.
// POST|GET /tasks/allocation
func (h *TasksHandler) TriggerAllocation(w http.ResponseWriter, r *http.Request) {
	res, err := h.allocations.Trigger(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAllocationInFlight):
			writeError(w, http.StatusTooManyRequests, "allocation already in progress")
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "allocation run timed out")
		case errors.Is(err, context.Canceled):
			writeError(w, http.StatusServiceUnavailable, "allocation run cancelled")
		default:
			h.logger.ErrorContext(r.Context(), "handler: allocation trigger failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "allocation run failed: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, toAllocationResponse(res))
}
