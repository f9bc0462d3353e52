package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
	"github.com/qrlworks/qrlbot/internal/engine"
)

// PortfolioView is the account snapshot served to the dashboard: raw
// balances plus the quote-denominated valuation and current allocation
// ratio, when a reference price is available.
type PortfolioView struct {
	Account    domain.Account
	BaseValue  decimal.Decimal
	QuoteValue decimal.Decimal
	TotalValue decimal.Decimal
	// BaseRatio is base value over total value, zero when the portfolio is
	// empty or no price is available.
	BaseRatio decimal.Decimal
	Priced    bool
}

// AccountService exposes exchange balances, valued at the current mid price.
type AccountService struct {
	exchange   domain.Exchange
	symbol     domain.Symbol
	normalizer *engine.BalanceNormalizer
	logger     *slog.Logger
}

func NewAccountService(exchange domain.Exchange, symbol domain.Symbol, freeOnly bool, logger *slog.Logger) *AccountService {
	return &AccountService{
		exchange:   exchange,
		symbol:     symbol,
		normalizer: engine.NewBalanceNormalizer(symbol, freeOnly),
		logger:     logger.With(slog.String("component", "account_service")),
	}
}

// GetPortfolio fetches balances and values them at the current mid price.
// A missing or unusable quote degrades to an unpriced view rather than an
// error; the balances themselves are still useful.
func (s *AccountService) GetPortfolio(ctx context.Context) (PortfolioView, error) {
	acct, err := s.exchange.GetAccount(ctx)
	if err != nil {
		return PortfolioView{}, fmt.Errorf("account_service: fetch account: %w", err)
	}

	view := PortfolioView{Account: acct}

	quote, err := s.exchange.GetQuote(ctx, s.symbol)
	if err != nil {
		s.logger.WarnContext(ctx, "valuation quote unavailable", slog.String("error", err.Error()))
		return view, nil
	}
	mid, ok := quote.Mid()
	if !ok {
		return view, nil
	}

	balances, err := s.normalizer.Normalize(acct, mid)
	if err != nil {
		return view, nil
	}

	view.BaseValue = balances.BaseValue
	view.QuoteValue = balances.QuoteValue
	view.TotalValue = balances.TotalValue()
	view.Priced = true
	if view.TotalValue.Sign() > 0 {
		view.BaseRatio = view.BaseValue.Div(view.TotalValue)
	}
	return view, nil
}
