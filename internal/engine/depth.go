package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// DepthCalculator simulates execution against a depth snapshot: it walks the
// opposing book side best-price-first and reports how much of a target
// quantity is fillable and at what volume-weighted average price.
type DepthCalculator struct{}

// Compute consumes asks for a BUY or bids for a SELL, greedily taking
// liquidity until target is filled or depth runs out. The returned weighted
// price is zero when nothing is fillable. Compute has no side effects; the
// snapshot is left untouched.
func (DepthCalculator) Compute(book domain.OrderBook, side domain.Side, target decimal.Decimal) (filled, weightedPrice decimal.Decimal) {
	levels := book.Asks
	if side == domain.SideSell {
		levels = book.Bids
	}

	sorted := make([]domain.DepthLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		if side == domain.SideSell {
			// Highest bid first.
			return sorted[i].Price.GreaterThan(sorted[j].Price)
		}
		// Lowest ask first.
		return sorted[i].Price.LessThan(sorted[j].Price)
	})

	remaining := target
	notional := decimal.Zero
	filled = decimal.Zero

	for _, lvl := range sorted {
		if remaining.Sign() <= 0 {
			break
		}
		take := decimal.Min(lvl.Quantity, remaining)
		notional = notional.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}

	if filled.Sign() > 0 {
		weightedPrice = notional.Div(filled)
	} else {
		weightedPrice = decimal.Zero
	}
	return filled, weightedPrice
}
