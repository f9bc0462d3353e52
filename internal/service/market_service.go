package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// MarketService serves read-only market data for the dashboard endpoints.
// Quotes and depth are cache-first: the websocket feed keeps the cache warm,
// and the exchange REST API covers cold-cache reads. Klines always come from
// REST; they change slowly and are not pushed over the feed.
type MarketService struct {
	exchange domain.Exchange
	symbol   domain.Symbol
	quotes   domain.QuoteCache
	books    domain.OrderBookCache
	logger   *slog.Logger
}

func NewMarketService(
	exchange domain.Exchange,
	symbol domain.Symbol,
	quotes domain.QuoteCache,
	books domain.OrderBookCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		exchange: exchange,
		symbol:   symbol,
		quotes:   quotes,
		books:    books,
		logger:   logger.With(slog.String("component", "market_service")),
	}
}

// GetQuote returns the latest top-of-book quote, preferring the cache.
func (s *MarketService) GetQuote(ctx context.Context) (domain.Quote, error) {
	if s.quotes != nil {
		q, err := s.quotes.GetQuote(ctx, s.symbol.Wire())
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote cache read failed", slog.String("error", err.Error()))
		}
	}

	q, err := s.exchange.GetQuote(ctx, s.symbol)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("market_service: fetch quote: %w", err)
	}

	if s.quotes != nil {
		if err := s.quotes.SetQuote(ctx, q); err != nil {
			s.logger.WarnContext(ctx, "quote cache write failed", slog.String("error", err.Error()))
		}
	}
	return q, nil
}

// GetDepth returns an order book snapshot, preferring the cache.
func (s *MarketService) GetDepth(ctx context.Context, limit int) (domain.OrderBook, error) {
	if s.books != nil {
		book, err := s.books.GetSnapshot(ctx, s.symbol.Wire())
		if err == nil {
			return truncateBook(book, limit), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "order book cache read failed", slog.String("error", err.Error()))
		}
	}

	book, err := s.exchange.GetDepth(ctx, s.symbol, limit)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("market_service: fetch depth: %w", err)
	}

	if s.books != nil {
		if err := s.books.SetSnapshot(ctx, book); err != nil {
			s.logger.WarnContext(ctx, "order book cache write failed", slog.String("error", err.Error()))
		}
	}
	return book, nil
}

// GetKlines returns recent candlesticks straight from the exchange.
func (s *MarketService) GetKlines(ctx context.Context, interval string, limit int) ([]domain.Kline, error) {
	klines, err := s.exchange.GetKlines(ctx, s.symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("market_service: fetch klines: %w", err)
	}
	return klines, nil
}

// truncateBook keeps at most limit levels per side. The cached snapshot may
// hold more levels than the caller asked for.
func truncateBook(book domain.OrderBook, limit int) domain.OrderBook {
	if limit <= 0 {
		return book
	}
	if len(book.Bids) > limit {
		book.Bids = book.Bids[:limit]
	}
	if len(book.Asks) > limit {
		book.Asks = book.Asks[:limit]
	}
	return book
}
