package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

var one = decimal.NewFromInt(1)

// LimitPriceSelector derives a maker-style limit price from the top of book:
// a buy is priced just below the best bid, a sell just above the best ask, so
// the order rests instead of crossing the spread. Rounding to the exchange
// tick always moves away from the spread: buys floor, sells ceil. An optional
// hard cap clamps the candidate before rounding.
type LimitPriceSelector struct {
	bufferPct decimal.Decimal
	priceTick decimal.Decimal
	capPrice  decimal.Decimal // zero disables the cap
}

// NewLimitPriceSelector validates the pricing knobs. bufferPct is a fraction
// (0.001 = 10 bps), priceTick the exchange price increment, capPrice an
// optional absolute bound (max for buys, min for sells; zero disables it).
func NewLimitPriceSelector(bufferPct, priceTick, capPrice decimal.Decimal) (*LimitPriceSelector, error) {
	if bufferPct.Sign() < 0 {
		return nil, fmt.Errorf("engine: price buffer must be non-negative, got %s", bufferPct)
	}
	if priceTick.Sign() <= 0 {
		return nil, fmt.Errorf("engine: price tick must be positive, got %s", priceTick)
	}
	if capPrice.Sign() < 0 {
		return nil, fmt.Errorf("engine: price cap must not be negative, got %s", capPrice)
	}
	return &LimitPriceSelector{bufferPct: bufferPct, priceTick: priceTick, capPrice: capPrice}, nil
}

// Price computes the limit price for the given side, returning ok=false when
// the book cannot be priced: missing or crossed top of book, or a candidate
// that would cross the spread after buffering and rounding.
func (s *LimitPriceSelector) Price(side domain.Side, bestBid, bestAsk decimal.Decimal) (decimal.Decimal, bool) {
	if bestBid.Sign() <= 0 || bestAsk.Sign() <= 0 || bestBid.GreaterThanOrEqual(bestAsk) {
		return decimal.Zero, false
	}

	var candidate decimal.Decimal
	if side == domain.SideBuy {
		candidate = bestBid.Mul(one.Sub(s.bufferPct))
		if s.capPrice.Sign() > 0 {
			candidate = decimal.Min(candidate, s.capPrice)
		}
		candidate = s.floorToTick(candidate)
		if candidate.Sign() <= 0 || candidate.GreaterThanOrEqual(bestAsk) {
			return decimal.Zero, false
		}
		return candidate, true
	}

	candidate = bestAsk.Mul(one.Add(s.bufferPct))
	if s.capPrice.Sign() > 0 {
		candidate = decimal.Max(candidate, s.capPrice)
	}
	// Ceil, not floor: with a buffer smaller than one tick, flooring would
	// land the sell below the best ask and cross the spread.
	candidate = s.ceilToTick(candidate)
	if candidate.LessThanOrEqual(bestBid) {
		return decimal.Zero, false
	}
	return candidate, true
}

// floorToTick rounds price down to the nearest tick so a buy never violates
// the exchange price increment and never overshoots the cap.
func (s *LimitPriceSelector) floorToTick(price decimal.Decimal) decimal.Decimal {
	return price.Div(s.priceTick).Floor().Mul(s.priceTick)
}

// ceilToTick rounds price up to the nearest tick so a sell stays at or above
// the buffered ask.
func (s *LimitPriceSelector) ceilToTick(price decimal.Decimal) decimal.Decimal {
	return price.Div(s.priceTick).Ceil().Mul(s.priceTick)
}
