package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// OrderService bridges the order history store and the live exchange. Reads
// of past orders hit the store; open-order queries and cancellations go to
// the exchange, with the store kept in sync best-effort.
type OrderService struct {
	exchange domain.Exchange
	symbol   domain.Symbol
	store    domain.OrderStore
	logger   *slog.Logger
}

func NewOrderService(exchange domain.Exchange, symbol domain.Symbol, store domain.OrderStore, logger *slog.Logger) *OrderService {
	return &OrderService{
		exchange: exchange,
		symbol:   symbol,
		store:    store,
		logger:   logger.With(slog.String("component", "order_service")),
	}
}

// Place submits a manually constructed order to the exchange and records it.
func (s *OrderService) Place(ctx context.Context, cmd domain.OrderCommand) (domain.Order, error) {
	cmd.Symbol = s.symbol
	o, err := s.exchange.PlaceOrder(ctx, cmd)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: place order: %w", err)
	}

	if s.store != nil {
		if err := s.store.Create(ctx, o); err != nil {
			s.logger.WarnContext(ctx, "order persist failed",
				slog.String("order_id", o.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
	return o, nil
}

// ListRecent returns the most recently submitted orders from the store.
func (s *OrderService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	if s.store == nil {
		return nil, nil
	}
	orders, err := s.store.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("order_service: list recent: %w", err)
	}
	return orders, nil
}

// Get returns one order. The store answers first; when the order is unknown
// locally it is looked up on the exchange and backfilled.
func (s *OrderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	if s.store != nil {
		o, err := s.store.GetByOrderID(ctx, orderID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, fmt.Errorf("order_service: get order: %w", err)
		}
	}

	o, err := s.exchange.GetOrder(ctx, s.symbol, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: fetch order: %w", err)
	}

	if s.store != nil {
		if err := s.store.Create(ctx, o); err != nil {
			s.logger.WarnContext(ctx, "order backfill failed",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}
	return o, nil
}

// ListOpen returns the orders currently resting on the exchange.
func (s *OrderService) ListOpen(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.exchange.ListOpenOrders(ctx, s.symbol)
	if err != nil {
		return nil, fmt.Errorf("order_service: list open: %w", err)
	}
	return orders, nil
}

// Cancel cancels a resting order on the exchange and records the new status.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := s.exchange.CancelOrder(ctx, s.symbol, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: cancel order: %w", err)
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusCancelled
	}

	if s.store != nil {
		if err := s.store.UpdateStatus(ctx, orderID, o.Status); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "order status sync failed",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}
	return o, nil
}
