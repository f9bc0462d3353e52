package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a strictly positive price value object. Construction fails fast on
// non-positive values so invalid prices never reach order submission.
type Price struct {
	value decimal.Decimal
}

// NewPrice validates v and returns a Price.
func NewPrice(v decimal.Decimal) (Price, error) {
	if v.Sign() <= 0 {
		return Price{}, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidOrder, v)
	}
	return Price{value: v}, nil
}

// Value returns the underlying decimal.
func (p Price) Value() decimal.Decimal { return p.value }

func (p Price) String() string { return p.value.String() }

// Quantity is a strictly positive order quantity value object.
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity validates v and returns a Quantity.
func NewQuantity(v decimal.Decimal) (Quantity, error) {
	if v.Sign() <= 0 {
		return Quantity{}, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, v)
	}
	return Quantity{value: v}, nil
}

// Value returns the underlying decimal.
func (q Quantity) Value() decimal.Decimal { return q.value }

func (q Quantity) String() string { return q.value.String() }

// Symbol is a validated trading pair. The bot trades a single fixed pair
// (QRL/USDT); the symbol is configuration, never user input.
type Symbol struct {
	base  string
	quote string
}

// NewSymbol validates the asset codes and returns a Symbol.
func NewSymbol(base, quote string) (Symbol, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return Symbol{}, fmt.Errorf("%w: symbol assets must not be empty", ErrInvalidOrder)
	}
	if base == quote {
		return Symbol{}, fmt.Errorf("%w: symbol assets must differ, got %s/%s", ErrInvalidOrder, base, quote)
	}
	return Symbol{base: base, quote: quote}, nil
}

// Base returns the base asset code (e.g. "QRL").
func (s Symbol) Base() string { return s.base }

// Quote returns the quote asset code (e.g. "USDT").
func (s Symbol) Quote() string { return s.quote }

// String renders the pair with a slash separator, e.g. "QRL/USDT".
func (s Symbol) String() string { return s.base + "/" + s.quote }

// Wire renders the pair in the exchange wire format, e.g. "QRLUSDT".
func (s Symbol) Wire() string { return s.base + s.quote }
