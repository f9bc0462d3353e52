package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qrlworks/qrlbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// QuoteHandler is called for every top-of-book push on a subscribed pair.
type QuoteHandler func(domain.Quote)

// DepthHandler is called for every limit-depth snapshot push.
type DepthHandler func(domain.OrderBook)

// WSClient is a WebSocket client for the MEXC public market data stream. It
// manages the connection lifecycle, subscriptions, and dispatches pushes to
// registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []string

	quoteHandlers []QuoteHandler
	depthHandlers []DepthHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a new WebSocket client for the given endpoint,
// e.g. "wss://wbs.mexc.com/ws".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("mexc/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("mexc/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	// Restore any previous subscriptions after reconnect.
	if len(w.subscriptions) > 0 {
		cmd := WSCommand{Method: "SUBSCRIPTION", Params: w.subscriptions}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("mexc/ws: restore subscriptions: %w", err)
		}
	}

	return nil
}

// SubscribeBookTicker subscribes to top-of-book pushes for the pair.
func (w *WSClient) SubscribeBookTicker(ctx context.Context, symbol domain.Symbol) error {
	channel := "spot@public.bookTicker.v3.api@" + symbol.Wire()
	return w.subscribe(channel)
}

// SubscribeDepth subscribes to limit-depth snapshot pushes for the pair.
// levels must be one of the values the stream supports (5, 10, 20).
func (w *WSClient) SubscribeDepth(ctx context.Context, symbol domain.Symbol, levels int) error {
	channel := fmt.Sprintf("spot@public.limit.depth.v3.api@%s@%d", symbol.Wire(), levels)
	return w.subscribe(channel)
}

func (w *WSClient) subscribe(channel string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("mexc/ws: not connected")
	}

	cmd := WSCommand{Method: "SUBSCRIPTION", Params: []string{channel}}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("mexc/ws: subscribe to %s: %w", channel, err)
	}

	// Track subscription for reconnection.
	w.subscriptions = append(w.subscriptions, channel)
	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnQuote registers a handler called for every top-of-book push.
func (w *WSClient) OnQuote(handler QuoteHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.quoteHandlers = append(w.quoteHandlers, handler)
}

// OnDepth registers a handler called for every depth snapshot push.
func (w *WSClient) OnDepth(handler DepthHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.depthHandlers = append(w.depthHandlers, handler)
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd WSCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads pushes from the WebSocket and dispatches them
// to the registered handlers. On disconnect it attempts to reconnect with
// exponential backoff.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw push and routes it by channel name.
func (w *WSClient) handleMessage(raw []byte) {
	var env WSEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return // subscription acks and malformed frames are dropped
	}
	if env.Channel == "" || len(env.Data) == 0 {
		return
	}

	switch {
	case strings.Contains(env.Channel, "public.bookTicker"):
		var ticker WSBookTicker
		if err := json.Unmarshal(env.Data, &ticker); err != nil {
			return
		}
		quote := ticker.ToDomainQuote(env.Symbol, env.Time)

		w.handlerMu.RLock()
		handlers := w.quoteHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(quote)
		}

	case strings.Contains(env.Channel, "public.limit.depth"):
		var depth WSDepth
		if err := json.Unmarshal(env.Data, &depth); err != nil {
			return
		}
		book := depth.ToDomainOrderBook(env.Symbol, env.Time)

		w.handlerMu.RLock()
		handlers := w.depthHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(book)
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
