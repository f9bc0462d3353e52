// Package engine implements the allocation decision engine: balance
// normalization, ratio comparison, executable-depth and slippage evaluation,
// and maker limit pricing. Every component is a pure function of its inputs;
// the orchestrator in internal/service composes them into one run.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// NormalizedBalances values both legs of the pair in quote-currency units.
type NormalizedBalances struct {
	BaseValue  decimal.Decimal
	QuoteValue decimal.Decimal
}

// TotalValue returns the combined portfolio value in quote units.
func (n NormalizedBalances) TotalValue() decimal.Decimal {
	return n.BaseValue.Add(n.QuoteValue)
}

// BalanceNormalizer converts raw asset balances into quote-currency notional
// using a reference mid-price. By default it values free+locked totals so
// capital tied up in open orders still counts toward the allocation; the
// free-only policy is available as a configuration knob.
type BalanceNormalizer struct {
	symbol   domain.Symbol
	freeOnly bool
}

// NewBalanceNormalizer creates a normalizer for the given pair. When freeOnly
// is set, locked amounts are excluded from valuation.
func NewBalanceNormalizer(symbol domain.Symbol, freeOnly bool) *BalanceNormalizer {
	return &BalanceNormalizer{symbol: symbol, freeOnly: freeOnly}
}

// Normalize values the account's base and quote holdings at midPrice. It
// fails when midPrice is not positive; callers short-circuit to a rejected
// result before calling Normalize when no price is available.
func (n *BalanceNormalizer) Normalize(acct domain.Account, midPrice decimal.Decimal) (NormalizedBalances, error) {
	if midPrice.Sign() <= 0 {
		return NormalizedBalances{}, fmt.Errorf("engine: normalize: mid-price must be positive, got %s", midPrice)
	}

	base := acct.Balance(n.symbol.Base())
	quote := acct.Balance(n.symbol.Quote())

	baseQty := base.Total()
	quoteQty := quote.Total()
	if n.freeOnly {
		baseQty = base.Free
		quoteQty = quote.Free
	}

	return NormalizedBalances{
		BaseValue:  baseQty.Mul(midPrice),
		QuoteValue: quoteQty,
	}, nil
}
