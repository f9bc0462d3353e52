package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// AllocationHistory defines the run-history read the allocations handler
// requires from the service layer.
type AllocationHistory interface {
	History(ctx context.Context, opts domain.ListOpts) ([]domain.AllocationResult, error)
}

// AllocationHandler serves the allocation run history endpoint.
type AllocationHandler struct {
	allocations AllocationHistory
	logger      *slog.Logger
}

// NewAllocationHandler creates an AllocationHandler with the given service.
func NewAllocationHandler(allocations AllocationHistory, logger *slog.Logger) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, logger: logger}
}

type listAllocationsResponse struct {
	Allocations []allocationResponse `json:"allocations"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// ListAllocations returns recent allocation runs, newest first.
// GET /api/allocations?limit=50&offset=0
func (h *AllocationHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	runs, err := h.allocations.History(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list allocations failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list allocations")
		return
	}

	writeJSON(w, http.StatusOK, listAllocationsResponse{
		Allocations: toAllocationResponses(runs),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}
