package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is the connectivity check the health endpoint exercises.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	exchange Pinger
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler. exchange may be nil, in which
// case only process liveness is reported.
func NewHealthHandler(exchange Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{exchange: exchange, logger: logger}
}

// HealthCheck reports process liveness and exchange connectivity.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.exchange != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.exchange.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "handler: exchange ping failed",
				slog.String("error", err.Error()),
			)
			resp["exchange"] = "unreachable"
			writeJSON(w, http.StatusOK, resp)
			return
		}
		resp["exchange"] = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}
