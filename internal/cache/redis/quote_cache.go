package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// quoteTTL bounds how long a stale quote is served to the market endpoints
// after the feed stops pushing.
const quoteTTL = 30 * time.Second

// QuoteCache implements domain.QuoteCache using Redis hashes. The quote is
// stored at key "quote:{symbol}" with fields "bid", "ask", "last" and "ts"
// (Unix nanosecond timestamp). Prices are stored as decimal strings to keep
// exchange precision intact.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.rdb}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// SetQuote stores the latest top-of-book quote for the symbol.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	key := quoteKey(q.Symbol)
	fields := map[string]interface{}{
		"bid":  q.Bid.String(),
		"ask":  q.Ask.String(),
		"last": q.Last.String(),
		"ts":   strconv.FormatInt(q.Timestamp.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.Symbol, err)
	}
	return nil
}

// GetQuote retrieves the latest quote for the symbol. It returns
// domain.ErrNotFound when no quote has been stored or the entry expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}

	q := domain.Quote{Symbol: symbol}
	if q.Bid, err = parseField(vals, "bid"); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: quote %s: %w", symbol, err)
	}
	if q.Ask, err = parseField(vals, "ask"); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: quote %s: %w", symbol, err)
	}
	if q.Last, err = parseField(vals, "last"); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: quote %s: %w", symbol, err)
	}

	if tsStr, ok := vals["ts"]; ok {
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("redis: quote %s: parse ts: %w", symbol, err)
		}
		q.Timestamp = time.Unix(0, tsNano)
	}

	return q, nil
}

func parseField(vals map[string]string, field string) (decimal.Decimal, error) {
	s, ok := vals[field]
	if !ok || s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
