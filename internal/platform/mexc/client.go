package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// Client is the REST client for the MEXC spot API (v3). Public market-data
// endpoints work without credentials; account and order endpoints require an
// API key and sign every request with HMAC-SHA256.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	recvWindow int
	httpClient *http.Client

	// now is injectable for deterministic signing in tests.
	now func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecvWindow sets the signed-request receive window in milliseconds.
func WithRecvWindow(ms int) Option {
	return func(c *Client) { c.recvWindow = ms }
}

// WithClock overrides the timestamp source used for request signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a MEXC REST client.
//
// baseURL is the API root, e.g. "https://api.mexc.com". apiKey and secretKey
// may be empty for public-endpoint-only use; signed endpoints then fail with
// domain.ErrMissingCredentials.
func NewClient(baseURL, apiKey, secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
		recvWindow: 5000,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether the client can call signed endpoints.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.secretKey != ""
}

// Ping verifies connectivity to the exchange.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doPublic(ctx, http.MethodGet, "/api/v3/ping", nil)
	if err != nil {
		return fmt.Errorf("mexc: ping: %w", err)
	}
	return nil
}

// GetQuote returns the top-of-book bid/ask and the last trade price for the
// pair, combined from the bookTicker and ticker/price endpoints.
func (c *Client) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	params := url.Values{"symbol": {symbol.Wire()}}

	body, err := c.doPublic(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("mexc: get book ticker: %w", err)
	}
	var ticker APIBookTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return domain.Quote{}, fmt.Errorf("mexc: decode book ticker: %w", err)
	}

	body, err = c.doPublic(ctx, http.MethodGet, "/api/v3/ticker/price", params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("mexc: get last price: %w", err)
	}
	var last APITickerPrice
	if err := json.Unmarshal(body, &last); err != nil {
		return domain.Quote{}, fmt.Errorf("mexc: decode last price: %w", err)
	}

	return ticker.ToDomainQuote(last.Price, c.now().UTC()), nil
}

// GetDepth returns up to limit levels per side of the order book.
func (c *Client) GetDepth(ctx context.Context, symbol domain.Symbol, limit int) (domain.OrderBook, error) {
	params := url.Values{
		"symbol": {symbol.Wire()},
		"limit":  {strconv.Itoa(limit)},
	}

	body, err := c.doPublic(ctx, http.MethodGet, "/api/v3/depth", params)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("mexc: get depth: %w", err)
	}

	var depth APIDepth
	if err := json.Unmarshal(body, &depth); err != nil {
		return domain.OrderBook{}, fmt.Errorf("mexc: decode depth: %w", err)
	}

	return depth.ToDomainOrderBook(symbol.Wire(), c.now().UTC()), nil
}

// GetKlines returns up to limit candlesticks for the given interval
// (e.g. "1m", "5m", "1h", "1d").
func (c *Client) GetKlines(ctx context.Context, symbol domain.Symbol, interval string, limit int) ([]domain.Kline, error) {
	params := url.Values{
		"symbol":   {symbol.Wire()},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}

	body, err := c.doPublic(ctx, http.MethodGet, "/api/v3/klines", params)
	if err != nil {
		return nil, fmt.Errorf("mexc: get klines: %w", err)
	}

	klines, err := parseKlines(body)
	if err != nil {
		return nil, fmt.Errorf("mexc: decode klines: %w", err)
	}
	return klines, nil
}

// GetAccount returns the current account balance snapshot.
func (c *Client) GetAccount(ctx context.Context) (domain.Account, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return domain.Account{}, fmt.Errorf("mexc: get account: %w", err)
	}

	var acct APIAccount
	if err := json.Unmarshal(body, &acct); err != nil {
		return domain.Account{}, fmt.Errorf("mexc: decode account: %w", err)
	}

	return acct.ToDomainAccount(c.now().UTC()), nil
}

// PlaceOrder submits cmd and returns the exchange acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, cmd domain.OrderCommand) (domain.Order, error) {
	params := url.Values{
		"symbol":   {cmd.Symbol.Wire()},
		"side":     {string(cmd.Side)},
		"type":     {string(cmd.Type)},
		"quantity": {cmd.Quantity.String()},
	}
	if cmd.Type == domain.OrderTypeLimit {
		params.Set("price", cmd.Price.String())
	}
	if cmd.TimeInForce != "" {
		params.Set("timeInForce", string(cmd.TimeInForce))
	}
	if cmd.ClientOrderID != "" {
		params.Set("newClientOrderId", cmd.ClientOrderID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mexc: place order: %w", err)
	}

	var apiOrder APIOrder
	if err := json.Unmarshal(body, &apiOrder); err != nil {
		return domain.Order{}, fmt.Errorf("mexc: decode order ack: %w", err)
	}

	ord := apiOrder.ToDomainOrder()
	if ord.ClientOrderID == "" {
		ord.ClientOrderID = cmd.ClientOrderID
	}
	return ord, nil
}

// CancelOrder cancels an open order by exchange order ID.
func (c *Client) CancelOrder(ctx context.Context, symbol domain.Symbol, orderID string) (domain.Order, error) {
	params := url.Values{
		"symbol":  {symbol.Wire()},
		"orderId": {orderID},
	}

	body, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mexc: cancel order %s: %w", orderID, err)
	}

	var apiOrder APIOrder
	if err := json.Unmarshal(body, &apiOrder); err != nil {
		return domain.Order{}, fmt.Errorf("mexc: decode cancel response: %w", err)
	}
	return apiOrder.ToDomainOrder(), nil
}

// GetOrder fetches a single order by exchange order ID.
func (c *Client) GetOrder(ctx context.Context, symbol domain.Symbol, orderID string) (domain.Order, error) {
	params := url.Values{
		"symbol":  {symbol.Wire()},
		"orderId": {orderID},
	}

	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mexc: get order %s: %w", orderID, err)
	}

	var apiOrder APIOrder
	if err := json.Unmarshal(body, &apiOrder); err != nil {
		return domain.Order{}, fmt.Errorf("mexc: decode order: %w", err)
	}
	return apiOrder.ToDomainOrder(), nil
}

// ListOpenOrders returns the currently open orders for the pair.
func (c *Client) ListOpenOrders(ctx context.Context, symbol domain.Symbol) ([]domain.Order, error) {
	params := url.Values{"symbol": {symbol.Wire()}}

	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/openOrders", params)
	if err != nil {
		return nil, fmt.Errorf("mexc: list open orders: %w", err)
	}

	var apiOrders []APIOrder
	if err := json.Unmarshal(body, &apiOrders); err != nil {
		return nil, fmt.Errorf("mexc: decode open orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(apiOrders))
	for i := range apiOrders {
		orders = append(orders, apiOrders[i].ToDomainOrder())
	}
	return orders, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doPublic sends an unauthenticated request and returns the response body.
func (c *Client) doPublic(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.do(ctx, method, u, false)
}

// doSigned signs the query string with HMAC-SHA256 and sends the request
// with the API key header. All signed endpoints carry their parameters in
// the query string, including POST.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, domain.ErrMissingCredentials
	}

	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(c.recvWindow))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	u := c.baseURL + path + "?" + query + "&signature=" + signature
	return c.do(ctx, method, u, true)
}

func (c *Client) do(ctx context.Context, method, u string, signed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if signed {
		req.Header.Set("X-MEXC-APIKEY", c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors, surfacing the
// exchange error message where one is present.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(body)
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		msg = fmt.Sprintf("code %d: %s", apiErr.Code, apiErr.Msg)
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidOrder, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
