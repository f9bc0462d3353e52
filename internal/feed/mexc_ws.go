// Package feed connects the MEXC public market stream to the Redis caches
// that back the market endpoints. Allocation runs never consume this data;
// they always fetch fresh snapshots over REST.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
	"github.com/qrlworks/qrlbot/internal/platform/mexc"
)

// depthLevels is the depth-channel level count the public stream supports.
const depthLevels = 20

// MexcWSFeed subscribes to the book-ticker and limit-depth channels for the
// configured pair and writes every push into the quote and order-book caches.
// It reconnects on disconnect.
type MexcWSFeed struct {
	wsURL     string
	symbol    domain.Symbol
	quotes    domain.QuoteCache
	books     domain.OrderBookCache
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewMexcWSFeed creates a feed for the given pair.
func NewMexcWSFeed(
	wsURL string,
	symbol domain.Symbol,
	quotes domain.QuoteCache,
	books domain.OrderBookCache,
	logger *slog.Logger,
) *MexcWSFeed {
	return &MexcWSFeed{
		wsURL:  wsURL,
		symbol: symbol,
		quotes: quotes,
		books:  books,
		logger: logger.With(slog.String("component", "mexc_ws_feed")),
		done:   make(chan struct{}),
	}
}

// Run connects, subscribes to both channels, and runs until ctx is cancelled.
// Reconnects with backoff on disconnect.
func (f *MexcWSFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("mexc ws disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *MexcWSFeed) runConnection(ctx context.Context) error {
	client := mexc.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnQuote(func(q domain.Quote) {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := f.quotes.SetQuote(cacheCtx, q); err != nil {
			f.logger.Debug("quote cache write failed", slog.String("error", err.Error()))
		}
	})
	client.OnDepth(func(book domain.OrderBook) {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := f.books.SetSnapshot(cacheCtx, book); err != nil {
			f.logger.Debug("book cache write failed", slog.String("error", err.Error()))
		}
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	if err := client.SubscribeBookTicker(ctx, f.symbol); err != nil {
		return err
	}
	if err := client.SubscribeDepth(ctx, f.symbol, depthLevels); err != nil {
		return err
	}
	f.logger.Info("mexc ws subscribed", slog.String("symbol", f.symbol.Wire()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Close stops the feed.
func (f *MexcWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
