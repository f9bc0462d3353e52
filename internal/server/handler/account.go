package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/qrlworks/qrlbot/internal/service"
)

// AccountService defines the methods the account handler requires from the
// service layer.
type AccountService interface {
	GetPortfolio(ctx context.Context) (service.PortfolioView, error)
}

// AccountHandler serves account and balance endpoints.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given service.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type balanceResponse struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
	Total  string `json:"total"`
}

type balancesResponse struct {
	Balances   []balanceResponse `json:"balances"`
	UpdatedAt  string            `json:"updated_at"`
	Priced     bool              `json:"priced"`
	BaseValue  string            `json:"base_value,omitempty"`
	QuoteValue string            `json:"quote_value,omitempty"`
	TotalValue string            `json:"total_value,omitempty"`
	BaseRatio  string            `json:"base_ratio,omitempty"`
}

// GetBalances returns the account balance snapshot with the current
// valuation attached when a reference price is available.
// GET /api/account/balances
func (h *AccountHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	view, err := h.accounts.GetPortfolio(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get balances failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch balances")
		return
	}

	resp := balancesResponse{
		Balances:  make([]balanceResponse, 0, len(view.Account.Balances)),
		UpdatedAt: view.Account.UpdatedAt.UTC().Format(time.RFC3339),
		Priced:    view.Priced,
	}
	for _, b := range view.Account.Balances {
		resp.Balances = append(resp.Balances, balanceResponse{
			Asset:  b.Asset,
			Free:   b.Free.String(),
			Locked: b.Locked.String(),
			Total:  b.Total().String(),
		})
	}
	if view.Priced {
		resp.BaseValue = view.BaseValue.String()
		resp.QuoteValue = view.QuoteValue.String()
		resp.TotalValue = view.TotalValue.String()
		resp.BaseRatio = view.BaseRatio.String()
	}

	writeJSON(w, http.StatusOK, resp)
}
