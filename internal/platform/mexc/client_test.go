package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func testSymbol(t *testing.T) domain.Symbol {
	t.Helper()
	sym, err := domain.NewSymbol("QRL", "USDT")
	require.NoError(t, err)
	return sym
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ping", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	require.NoError(t, c.Ping(context.Background()))
}

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/bookTicker":
			assert.Equal(t, "QRLUSDT", r.URL.Query().Get("symbol"))
			w.Write([]byte(`{"symbol":"QRLUSDT","bidPrice":"1.0100","bidQty":"500","askPrice":"1.0200","askQty":"300"}`))
		case "/api/v3/ticker/price":
			w.Write([]byte(`{"symbol":"QRLUSDT","price":"1.0150"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	quote, err := c.GetQuote(context.Background(), testSymbol(t))
	require.NoError(t, err)

	assert.Equal(t, "QRLUSDT", quote.Symbol)
	assert.True(t, quote.Bid.Equal(mustDecimal(t, "1.01")))
	assert.True(t, quote.Ask.Equal(mustDecimal(t, "1.02")))
	assert.True(t, quote.Last.Equal(mustDecimal(t, "1.015")))

	mid, ok := quote.Mid()
	require.True(t, ok)
	assert.True(t, mid.Equal(mustDecimal(t, "1.015")))
}

func TestGetDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/depth", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"lastUpdateId":123,"bids":[["1.0100","500"],["1.0050","1000"]],"asks":[["1.0200","300"]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	book, err := c.GetDepth(context.Background(), testSymbol(t), 20)
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.True(t, book.BestBid().Equal(mustDecimal(t, "1.01")))
	assert.True(t, book.BestAsk().Equal(mustDecimal(t, "1.02")))
}

func TestGetKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Write([]byte(`[[1700000000000,"1.00","1.05","0.98","1.02","1500.5",1700003600000,"1520.1"]]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	klines, err := c.GetKlines(context.Background(), testSymbol(t), "1h", 100)
	require.NoError(t, err)

	require.Len(t, klines, 1)
	k := klines[0]
	assert.Equal(t, time.UnixMilli(1700000000000), k.OpenTime)
	assert.True(t, k.High.Equal(mustDecimal(t, "1.05")))
	assert.True(t, k.Close.Equal(mustDecimal(t, "1.02")))
	assert.True(t, k.Volume.Equal(mustDecimal(t, "1500.5")))
}

func TestGetAccountSignsRequest(t *testing.T) {
	const (
		apiKey = "test-key"
		secret = "test-secret"
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/account", r.URL.Path)
		assert.Equal(t, apiKey, r.Header.Get("X-MEXC-APIKEY"))

		q := r.URL.Query()
		assert.NotEmpty(t, q.Get("timestamp"))
		assert.Equal(t, "5000", q.Get("recvWindow"))

		// Verify the signature covers the query string minus the signature
		// parameter itself.
		sig := q.Get("signature")
		require.NotEmpty(t, sig)
		q.Del("signature")
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(q.Encode()))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)

		w.Write([]byte(`{"balances":[{"asset":"QRL","free":"1000.5","locked":"10"},{"asset":"USDT","free":"200","locked":"0"}],"updateTime":1700000000000}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, apiKey, secret)
	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)

	qrl := acct.Balance("QRL")
	assert.True(t, qrl.Free.Equal(mustDecimal(t, "1000.5")))
	assert.True(t, qrl.Total().Equal(mustDecimal(t, "1010.5")))
	assert.True(t, acct.Balance("USDT").Free.Equal(mustDecimal(t, "200")))
	assert.Equal(t, time.UnixMilli(1700000000000), acct.UpdatedAt)
}

func TestSignedEndpointWithoutCredentials(t *testing.T) {
	c := NewClient("http://localhost:0", "", "")
	_, err := c.GetAccount(context.Background())
	require.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "QRLUSDT", q.Get("symbol"))
		assert.Equal(t, "SELL", q.Get("side"))
		assert.Equal(t, "LIMIT", q.Get("type"))
		assert.Equal(t, "50.25", q.Get("quantity"))
		assert.Equal(t, "1.021", q.Get("price"))
		assert.Equal(t, "GTC", q.Get("timeInForce"))
		assert.Equal(t, "req-123", q.Get("newClientOrderId"))
		assert.NotEmpty(t, q.Get("signature"))

		w.Write([]byte(`{"symbol":"QRLUSDT","orderId":"C02_1001","price":"1.021","origQty":"50.25","type":"LIMIT","side":"SELL","transactTime":1700000000000}`))
	}))
	defer srv.Close()

	price, err := domain.NewPrice(mustDecimal(t, "1.021"))
	require.NoError(t, err)
	qty, err := domain.NewQuantity(mustDecimal(t, "50.25"))
	require.NoError(t, err)

	c := NewClient(srv.URL, "k", "s")
	ord, err := c.PlaceOrder(context.Background(), domain.OrderCommand{
		Symbol:        testSymbol(t),
		Side:          domain.SideSell,
		Type:          domain.OrderTypeLimit,
		Quantity:      qty,
		Price:         price,
		TimeInForce:   domain.TimeInForceGTC,
		ClientOrderID: "req-123",
	})
	require.NoError(t, err)

	assert.Equal(t, "C02_1001", ord.OrderID)
	assert.Equal(t, "req-123", ord.ClientOrderID)
	assert.Equal(t, domain.OrderStatusNew, ord.Status)
	assert.True(t, ord.Price.Equal(mustDecimal(t, "1.021")))
}

func TestCancelOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "C02_1001", r.URL.Query().Get("orderId"))
		w.Write([]byte(`{"symbol":"QRLUSDT","orderId":"C02_1001","price":"1.021","origQty":"50.25","executedQty":"0","status":"CANCELED","type":"LIMIT","side":"SELL"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s")
	ord, err := c.CancelOrder(context.Background(), testSymbol(t), "C02_1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, ord.Status)
}

func TestListOpenOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/openOrders", r.URL.Path)
		w.Write([]byte(`[{"symbol":"QRLUSDT","orderId":"1","clientOrderId":"a","price":"1.01","origQty":"10","executedQty":"2.5","status":"PARTIALLY_FILLED","type":"LIMIT","side":"BUY","time":1700000000000}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s")
	orders, err := c.ListOpenOrders(context.Background(), testSymbol(t))
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, orders[0].Status)
	assert.True(t, orders[0].ExecutedQty.Equal(mustDecimal(t, "2.5")))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"code":429,"msg":"Too many requests"}`, domain.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, `{"code":700002,"msg":"Signature for this request is not valid."}`, domain.ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"code":-2013,"msg":"Order does not exist."}`, domain.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"code":30004,"msg":"Insufficient balance"}`, domain.ErrInvalidOrder},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", "s")
			_, err := c.GetOrder(context.Background(), testSymbol(t), "1")
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWSHandleMessage(t *testing.T) {
	w := NewWSClient("wss://example.invalid/ws")

	var quotes []domain.Quote
	w.OnQuote(func(q domain.Quote) { quotes = append(quotes, q) })

	var books []domain.OrderBook
	w.OnDepth(func(b domain.OrderBook) { books = append(books, b) })

	// Subscription ack frames carry no channel and are dropped.
	w.handleMessage([]byte(`{"id":0,"code":0,"msg":"spot@public.bookTicker.v3.api@QRLUSDT"}`))
	require.Empty(t, quotes)

	w.handleMessage([]byte(`{"c":"spot@public.bookTicker.v3.api@QRLUSDT","s":"QRLUSDT","t":1700000000000,"d":{"b":"1.0100","B":"500","a":"1.0200","A":"300"}}`))
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].Bid.Equal(mustDecimal(t, "1.01")))
	assert.True(t, quotes[0].Ask.Equal(mustDecimal(t, "1.02")))
	assert.Equal(t, time.UnixMilli(1700000000000), quotes[0].Timestamp)

	w.handleMessage([]byte(`{"c":"spot@public.limit.depth.v3.api@QRLUSDT@20","s":"QRLUSDT","t":1700000000000,"d":{"bids":[{"p":"1.0100","v":"500"}],"asks":[{"p":"1.0200","v":"300"}]}}`))
	require.Len(t, books, 1)
	assert.True(t, books[0].BestBid().Equal(mustDecimal(t, "1.01")))
}
