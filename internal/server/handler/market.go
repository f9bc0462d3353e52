package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	GetQuote(ctx context.Context) (domain.Quote, error)
	GetDepth(ctx context.Context, limit int) (domain.OrderBook, error)
	GetKlines(ctx context.Context, interval string, limit int) ([]domain.Kline, error)
}

// MarketHandler serves market-data HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// GetPrice returns the latest top-of-book quote for the traded pair.
// GET /api/market/price
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := h.markets.GetQuote(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get price failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch price")
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// GetDepth returns an order book snapshot.
// GET /api/market/depth?limit=20
func (h *MarketHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20, 100)

	book, err := h.markets.GetDepth(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get depth failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch depth")
		return
	}

	writeJSON(w, http.StatusOK, toDepthResponse(book))
}

// GetKlines returns recent candlesticks.
// GET /api/market/klines?interval=1h&limit=100
func (h *MarketHandler) GetKlines(w http.ResponseWriter, r *http.Request) {
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := parseIntParam(r, "limit", 100, 1000)

	klines, err := h.markets.GetKlines(r.Context(), interval, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get klines failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch klines")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"interval": interval,
		"klines":   toKlineResponses(klines),
	})
}
