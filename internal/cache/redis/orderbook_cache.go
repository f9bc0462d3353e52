package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// bookTTL bounds how long a stale depth snapshot is served after the feed
// stops pushing.
const bookTTL = 30 * time.Second

// OrderBookCache implements domain.OrderBookCache by storing the whole depth
// snapshot as a JSON blob at key "book:{symbol}". The snapshot is replaced
// wholesale on every push, so a single SET keeps reads and writes atomic
// without per-level bookkeeping. Prices are serialized as decimal strings.
type OrderBookCache struct {
	rdb *redis.Client
}

// NewOrderBookCache creates an OrderBookCache backed by the given Client.
func NewOrderBookCache(c *Client) *OrderBookCache {
	return &OrderBookCache{rdb: c.rdb}
}

func bookKey(symbol string) string {
	return "book:" + symbol
}

// cachedLevel is the wire form of one depth level in the cached snapshot.
type cachedLevel struct {
	Price    decimal.Decimal `json:"p"`
	Quantity decimal.Decimal `json:"q"`
}

// cachedBook is the wire form of the cached snapshot.
type cachedBook struct {
	Bids []cachedLevel `json:"bids"`
	Asks []cachedLevel `json:"asks"`
	TS   int64         `json:"ts"`
}

// SetSnapshot replaces the depth snapshot for the symbol.
func (oc *OrderBookCache) SetSnapshot(ctx context.Context, book domain.OrderBook) error {
	blob := cachedBook{
		Bids: toCachedLevels(book.Bids),
		Asks: toCachedLevels(book.Asks),
		TS:   book.Timestamp.UnixNano(),
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.Symbol, err)
	}

	if err := oc.rdb.Set(ctx, bookKey(book.Symbol), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", book.Symbol, err)
	}
	return nil
}

// GetSnapshot retrieves the latest depth snapshot for the symbol. It returns
// domain.ErrNotFound when no snapshot has been stored or the entry expired.
func (oc *OrderBookCache) GetSnapshot(ctx context.Context, symbol string) (domain.OrderBook, error) {
	data, err := oc.rdb.Get(ctx, bookKey(symbol)).Bytes()
	if err == redis.Nil {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: get book %s: %w", symbol, err)
	}

	var blob cachedBook
	if err := json.Unmarshal(data, &blob); err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: unmarshal book %s: %w", symbol, err)
	}

	return domain.OrderBook{
		Symbol:    symbol,
		Bids:      toDomainLevels(blob.Bids),
		Asks:      toDomainLevels(blob.Asks),
		Timestamp: time.Unix(0, blob.TS),
	}, nil
}

func toCachedLevels(levels []domain.DepthLevel) []cachedLevel {
	out := make([]cachedLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, cachedLevel{Price: lvl.Price, Quantity: lvl.Quantity})
	}
	return out
}

func toDomainLevels(levels []cachedLevel) []domain.DepthLevel {
	out := make([]domain.DepthLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, domain.DepthLevel{Price: lvl.Price, Quantity: lvl.Quantity})
	}
	return out
}

// Compile-time interface check.
var _ domain.OrderBookCache = (*OrderBookCache)(nil)
