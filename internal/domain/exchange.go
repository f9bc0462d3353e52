package domain

import "context"

// Exchange is the capability interface over the exchange REST API. The
// allocation engine consumes it as a black box; tests substitute a
// deterministic double implementing the same method set.
type Exchange interface {
	// Ping verifies connectivity to the exchange.
	Ping(ctx context.Context) error

	// GetAccount returns the current account balance snapshot.
	GetAccount(ctx context.Context) (Account, error)

	// GetQuote returns the top-of-book bid/ask and last trade price.
	GetQuote(ctx context.Context, symbol Symbol) (Quote, error)

	// GetDepth returns up to limit levels per side of the order book.
	GetDepth(ctx context.Context, symbol Symbol, limit int) (OrderBook, error)

	// GetKlines returns up to limit candlesticks for the given interval.
	GetKlines(ctx context.Context, symbol Symbol, interval string, limit int) ([]Kline, error)

	// PlaceOrder submits the order and returns the exchange acknowledgement.
	PlaceOrder(ctx context.Context, cmd OrderCommand) (Order, error)

	// CancelOrder cancels an open order by exchange order ID.
	CancelOrder(ctx context.Context, symbol Symbol, orderID string) (Order, error)

	// GetOrder fetches a single order by exchange order ID.
	GetOrder(ctx context.Context, symbol Symbol, orderID string) (Order, error)

	// ListOpenOrders returns the currently open orders for the pair.
	ListOpenOrders(ctx context.Context, symbol Symbol) ([]Order, error)
}
