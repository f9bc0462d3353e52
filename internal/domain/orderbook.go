package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepthLevel is a single price+quantity entry on one side of the book.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a depth snapshot as received from the exchange. Levels are not
// guaranteed to be sorted; consumers that need best-price-first ordering sort
// on demand.
type OrderBook struct {
	Symbol    string
	Bids      []DepthLevel
	Asks      []DepthLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or zero when the bid side is empty.
func (b OrderBook) BestBid() decimal.Decimal {
	best := decimal.Zero
	for _, lvl := range b.Bids {
		if lvl.Price.GreaterThan(best) {
			best = lvl.Price
		}
	}
	return best
}

// BestAsk returns the lowest ask price, or zero when the ask side is empty.
func (b OrderBook) BestAsk() decimal.Decimal {
	best := decimal.Zero
	for _, lvl := range b.Asks {
		if best.IsZero() || lvl.Price.LessThan(best) {
			best = lvl.Price
		}
	}
	return best
}

// Quote is the top-of-book price snapshot used as the reference for an
// allocation run.
type Quote struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Timestamp time.Time
}

// Mid returns the mid-price (average of best bid and ask) and whether it is
// usable. A quote with a non-positive bid or ask yields no mid-price.
func (q Quote) Mid() (decimal.Decimal, bool) {
	if q.Bid.Sign() <= 0 || q.Ask.Sign() <= 0 {
		return decimal.Zero, false
	}
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2)), true
}

// Kline is a single candlestick from the exchange klines endpoint.
type Kline struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}
