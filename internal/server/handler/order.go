package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// OrderService defines the methods the order handler requires from the
// service layer.
type OrderService interface {
	Place(ctx context.Context, cmd domain.OrderCommand) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	ListOpen(ctx context.Context) ([]domain.Order, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error)
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// listOrdersResponse wraps the list orders response.
type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListOrders returns order history, or currently open orders with ?open=true.
// GET /api/orders?limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		orders []domain.Order
		err    error
	)
	if r.URL.Query().Get("open") == "true" {
		orders, err = h.orders.ListOpen(r.Context())
	} else {
		orders, err = h.orders.ListRecent(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, listOrdersResponse{
		Orders: toOrderResponses(orders),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetOrder returns a single order by exchange order ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// placeOrderRequest is the JSON body for manual order placement.
type placeOrderRequest struct {
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
}

// PlaceOrder submits a manually specified order for the traded pair.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cmd, err := buildOrderCommand(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Place(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "rate limited by exchange")
			return
		}
		if errors.Is(err, domain.ErrInvalidOrder) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: place order failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// CancelOrder cancels an existing order by its exchange order ID.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	o, err := h.orders.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// buildOrderCommand validates the request body through the domain value
// objects so malformed prices and quantities never reach the exchange.
func buildOrderCommand(req placeOrderRequest) (domain.OrderCommand, error) {
	side := domain.Side(req.Side)
	if side != domain.SideBuy && side != domain.SideSell {
		return domain.OrderCommand{}, errors.New("side must be BUY or SELL")
	}

	orderType := domain.OrderType(req.Type)
	if orderType == "" {
		orderType = domain.OrderTypeLimit
	}
	if orderType != domain.OrderTypeLimit && orderType != domain.OrderTypeMarket {
		return domain.OrderCommand{}, errors.New("type must be LIMIT or MARKET")
	}

	qtyDec, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return domain.OrderCommand{}, errors.New("quantity must be a decimal number")
	}
	quantity, err := domain.NewQuantity(qtyDec)
	if err != nil {
		return domain.OrderCommand{}, err
	}

	cmd := domain.OrderCommand{
		Side:          side,
		Type:          orderType,
		Quantity:      quantity,
		TimeInForce:   domain.TimeInForceGTC,
		ClientOrderID: req.ClientOrderID,
	}
	if req.TimeInForce != "" {
		cmd.TimeInForce = domain.TimeInForce(req.TimeInForce)
	}

	if orderType == domain.OrderTypeLimit {
		priceDec, err := decimal.NewFromString(req.Price)
		if err != nil {
			return domain.OrderCommand{}, errors.New("price must be a decimal number")
		}
		price, err := domain.NewPrice(priceDec)
		if err != nil {
			return domain.OrderCommand{}, err
		}
		cmd.Price = price
	}

	return cmd, nil
}
