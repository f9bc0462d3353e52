package mexc

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// --------------------------------------------------------------------------
// REST API DTOs
// --------------------------------------------------------------------------

// APIError is the error envelope returned by the MEXC REST API on failures,
// e.g. {"code":700002,"msg":"Signature for this request is not valid."}.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// APIBookTicker is the response of GET /api/v3/ticker/bookTicker.
type APIBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// APITickerPrice is the response of GET /api/v3/ticker/price.
type APITickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// ToDomainQuote combines a book ticker and last trade price into a quote.
func (t *APIBookTicker) ToDomainQuote(last string, now time.Time) domain.Quote {
	return domain.Quote{
		Symbol:    t.Symbol,
		Bid:       parseDecimal(t.BidPrice),
		Ask:       parseDecimal(t.AskPrice),
		Last:      parseDecimal(last),
		Timestamp: now,
	}
}

// APIDepth is the response of GET /api/v3/depth. Each level is a
// ["price", "quantity"] string pair.
type APIDepth struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// ToDomainOrderBook converts an APIDepth to a domain.OrderBook.
func (d *APIDepth) ToDomainOrderBook(symbol string, now time.Time) domain.OrderBook {
	return domain.OrderBook{
		Symbol:    symbol,
		Bids:      toDepthLevels(d.Bids),
		Asks:      toDepthLevels(d.Asks),
		Timestamp: now,
	}
}

func toDepthLevels(raw [][2]string) []domain.DepthLevel {
	levels := make([]domain.DepthLevel, 0, len(raw))
	for _, pair := range raw {
		levels = append(levels, domain.DepthLevel{
			Price:    parseDecimal(pair[0]),
			Quantity: parseDecimal(pair[1]),
		})
	}
	return levels
}

// APIBalance is a single asset entry in the account response.
type APIBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// APIAccount is the response of GET /api/v3/account.
type APIAccount struct {
	Balances   []APIBalance `json:"balances"`
	UpdateTime int64        `json:"updateTime"`
}

// ToDomainAccount converts an APIAccount to a domain.Account.
func (a *APIAccount) ToDomainAccount(now time.Time) domain.Account {
	acct := domain.Account{
		Balances:  make([]domain.Balance, 0, len(a.Balances)),
		UpdatedAt: now,
	}
	if a.UpdateTime > 0 {
		acct.UpdatedAt = time.UnixMilli(a.UpdateTime)
	}
	for _, b := range a.Balances {
		acct.Balances = append(acct.Balances, domain.Balance{
			Asset:  b.Asset,
			Free:   parseDecimal(b.Free),
			Locked: parseDecimal(b.Locked),
		})
	}
	return acct
}

// APIOrder is an order as returned by the MEXC order endpoints. Order
// placement acknowledgements omit some fields (status, executedQty); query
// responses fill them in.
type APIOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
	OrigClientID  string `json:"origClientOrderId,omitempty"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty,omitempty"`
	Status        string `json:"status,omitempty"`
	Type          string `json:"type"`
	Side          string `json:"side"`
	TimeInForce   string `json:"timeInForce,omitempty"`
	Time          int64  `json:"time,omitempty"`
	TransactTime  int64  `json:"transactTime,omitempty"`
}

// ToDomainOrder converts an APIOrder to a domain.Order.
func (o *APIOrder) ToDomainOrder() domain.Order {
	ord := domain.Order{
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          domain.Side(o.Side),
		Type:          domain.OrderType(o.Type),
		Price:         parseDecimal(o.Price),
		Quantity:      parseDecimal(o.OrigQty),
		ExecutedQty:   parseDecimal(o.ExecutedQty),
		Status:        domain.OrderStatus(o.Status),
		TimeInForce:   domain.TimeInForce(o.TimeInForce),
	}
	if ord.ClientOrderID == "" {
		ord.ClientOrderID = o.OrigClientID
	}
	if ord.Status == "" {
		ord.Status = domain.OrderStatusNew
	}
	switch {
	case o.Time > 0:
		ord.CreatedAt = time.UnixMilli(o.Time)
	case o.TransactTime > 0:
		ord.CreatedAt = time.UnixMilli(o.TransactTime)
	}
	return ord
}

// parseKlines converts the raw klines payload to domain candlesticks. Each
// row is a mixed array: [openTime, open, high, low, close, volume,
// closeTime, quoteVolume] where times are numbers and prices are strings.
func parseKlines(raw []byte) ([]domain.Kline, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	klines := make([]domain.Kline, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		klines = append(klines, domain.Kline{
			OpenTime:  parseMillis(row[0]),
			Open:      parseDecimalJSON(row[1]),
			High:      parseDecimalJSON(row[2]),
			Low:       parseDecimalJSON(row[3]),
			Close:     parseDecimalJSON(row[4]),
			Volume:    parseDecimalJSON(row[5]),
			CloseTime: parseMillis(row[6]),
		})
	}
	return klines, nil
}

func parseMillis(raw json.RawMessage) time.Time {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// parseDecimalJSON accepts either a JSON string ("0.022") or a bare number.
func parseDecimalJSON(raw json.RawMessage) decimal.Decimal {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseDecimal(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

// parseDecimal parses a wire decimal string, yielding zero for empty or
// malformed values. Exchange payloads use empty strings for absent fields.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the subscription envelope sent to the public market stream.
type WSCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
}

// WSEnvelope is the outer frame of a public stream push. The channel name in
// "c" identifies the payload shape.
type WSEnvelope struct {
	Channel string          `json:"c"`
	Symbol  string          `json:"s"`
	Time    int64           `json:"t"`
	Data    json.RawMessage `json:"d"`
}

// WSBookTicker is the payload of a spot@public.bookTicker push.
type WSBookTicker struct {
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// ToDomainQuote converts a book-ticker push to a domain.Quote. The stream
// carries no last-trade price; Last stays zero and consumers fall back to
// the mid-price.
func (t *WSBookTicker) ToDomainQuote(symbol string, ts int64) domain.Quote {
	q := domain.Quote{
		Symbol: symbol,
		Bid:    parseDecimal(t.BidPrice),
		Ask:    parseDecimal(t.AskPrice),
	}
	if ts > 0 {
		q.Timestamp = time.UnixMilli(ts)
	} else {
		q.Timestamp = time.Now().UTC()
	}
	return q
}

// WSDepthLevel is one price level in a limit-depth push.
type WSDepthLevel struct {
	Price    string `json:"p"`
	Quantity string `json:"v"`
}

// WSDepth is the payload of a spot@public.limit.depth push.
type WSDepth struct {
	Bids []WSDepthLevel `json:"bids"`
	Asks []WSDepthLevel `json:"asks"`
}

// ToDomainOrderBook converts a limit-depth push to a domain.OrderBook.
func (d *WSDepth) ToDomainOrderBook(symbol string, ts int64) domain.OrderBook {
	book := domain.OrderBook{
		Symbol: symbol,
		Bids:   make([]domain.DepthLevel, 0, len(d.Bids)),
		Asks:   make([]domain.DepthLevel, 0, len(d.Asks)),
	}
	for _, lvl := range d.Bids {
		book.Bids = append(book.Bids, domain.DepthLevel{Price: parseDecimal(lvl.Price), Quantity: parseDecimal(lvl.Quantity)})
	}
	for _, lvl := range d.Asks {
		book.Asks = append(book.Asks, domain.DepthLevel{Price: parseDecimal(lvl.Price), Quantity: parseDecimal(lvl.Quantity)})
	}
	if ts > 0 {
		book.Timestamp = time.UnixMilli(ts)
	} else {
		book.Timestamp = time.Now().UTC()
	}
	return book
}
