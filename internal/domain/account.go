package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is an immutable snapshot of a single asset balance as reported by
// the exchange. Free is the spendable amount, Locked the amount reserved by
// open orders.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Total returns free + locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// Account is the exchange account snapshot fetched per allocation run.
type Account struct {
	Balances  []Balance
	UpdatedAt time.Time
}

// Balance returns the balance for the given asset, or a zero balance when the
// exchange did not report the asset at all.
func (a Account) Balance(asset string) Balance {
	for _, b := range a.Balances {
		if strings.EqualFold(b.Asset, asset) {
			return b
		}
	}
	return Balance{Asset: strings.ToUpper(asset)}
}
