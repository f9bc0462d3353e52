package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/qrlworks/qrlbot/internal/domain"
	"github.com/qrlworks/qrlbot/internal/engine"
)

// AllocationParams carries the decision-engine knobs in their configured
// form. The service converts them to decimals once at construction.
type AllocationParams struct {
	TargetRatio    float64
	TolerancePct   float64
	MinNotional    float64
	MaxNotional    float64
	DepthLimit     int
	SlippagePct    float64
	PriceBufferPct float64
	PriceCap       float64
	PriceTick      float64
	QuantityStep   float64
	FreeOnly       bool
	DryRun         bool
	GuardPolicy    GuardPolicy
	Timeout        time.Duration
}

// AllocationNotifier publishes allocation outcomes to operators.
type AllocationNotifier interface {
	NotifyAllocation(ctx context.Context, res domain.AllocationResult) error
}

// AllocationService runs the rebalancing decision pipeline: fetch fresh
// account and market state, decide whether the portfolio drifted past
// tolerance, and if so place exactly one maker limit order. Every invocation
// produces one immutable AllocationResult.
type AllocationService struct {
	exchange domain.Exchange
	symbol   domain.Symbol

	normalizer *engine.BalanceNormalizer
	comparison *engine.BalanceComparisonRule
	depth      engine.DepthCalculator
	slippage   *engine.SlippageAnalyzer
	pricer     *engine.LimitPriceSelector

	minNotional  decimal.Decimal
	maxNotional  decimal.Decimal
	quantityStep decimal.Decimal
	depthLimit   int
	dryRun       bool

	guard    *ExecutionGuard
	runs     domain.AllocationStore
	orders   domain.OrderStore
	notifier AllocationNotifier
	logger   *slog.Logger

	// now and newRequestID are injectable for deterministic tests.
	now          func() time.Time
	newRequestID func() string
}

// NewAllocationService wires the decision engine from params.
// runs, orders and notifier may be nil; persistence and notification are
// best-effort and never change the run outcome.
func NewAllocationService(
	exchange domain.Exchange,
	symbol domain.Symbol,
	params AllocationParams,
	runs domain.AllocationStore,
	orders domain.OrderStore,
	notifier AllocationNotifier,
	logger *slog.Logger,
) (*AllocationService, error) {
	comparison, err := engine.NewBalanceComparisonRule(
		decimal.NewFromFloat(params.TargetRatio),
		decimal.NewFromFloat(params.TolerancePct),
	)
	if err != nil {
		return nil, fmt.Errorf("allocation_service: %w", err)
	}

	slippage, err := engine.NewSlippageAnalyzer(decimal.NewFromFloat(params.SlippagePct))
	if err != nil {
		return nil, fmt.Errorf("allocation_service: %w", err)
	}

	pricer, err := engine.NewLimitPriceSelector(
		decimal.NewFromFloat(params.PriceBufferPct),
		decimal.NewFromFloat(params.PriceTick),
		decimal.NewFromFloat(params.PriceCap),
	)
	if err != nil {
		return nil, fmt.Errorf("allocation_service: %w", err)
	}

	if params.MinNotional <= 0 {
		return nil, fmt.Errorf("allocation_service: min notional must be positive, got %v", params.MinNotional)
	}
	if params.QuantityStep <= 0 {
		return nil, fmt.Errorf("allocation_service: quantity step must be positive, got %v", params.QuantityStep)
	}
	if params.Timeout <= 0 {
		params.Timeout = 20 * time.Second
	}
	if params.DepthLimit <= 0 {
		params.DepthLimit = 50
	}

	return &AllocationService{
		exchange:     exchange,
		symbol:       symbol,
		normalizer:   engine.NewBalanceNormalizer(symbol, params.FreeOnly),
		comparison:   comparison,
		slippage:     slippage,
		pricer:       pricer,
		minNotional:  decimal.NewFromFloat(params.MinNotional),
		maxNotional:  decimal.NewFromFloat(params.MaxNotional),
		quantityStep: decimal.NewFromFloat(params.QuantityStep),
		depthLimit:   params.DepthLimit,
		dryRun:       params.DryRun,
		guard:        NewExecutionGuard(params.GuardPolicy, params.Timeout),
		runs:         runs,
		orders:       orders,
		notifier:     notifier,
		logger:       logger.With(slog.String("component", "allocation_service")),
		now:          time.Now,
		newRequestID: func() string { return uuid.New().String() },
	}, nil
}

// Trigger runs one guarded allocation. Concurrent triggers are coalesced or
// rejected per the configured guard policy; domain.ErrAllocationInFlight and
// context.DeadlineExceeded surface to the caller for transport mapping,
// while decision outcomes (skip, reject, order failure) are terminal results
// with a nil error.
func (s *AllocationService) Trigger(ctx context.Context) (domain.AllocationResult, error) {
	return s.guard.Do(ctx, s.Execute)
}

// Execute runs the pipeline once, without the guard. Exposed for the guard
// and for tests; production callers go through Trigger.
func (s *AllocationService) Execute(ctx context.Context) (domain.AllocationResult, error) {
	res := domain.AllocationResult{
		RequestID:  s.newRequestID(),
		ExecutedAt: s.now().UTC(),
	}

	logger := s.logger.With(slog.String("request_id", res.RequestID))

	// Fetch balances and the reference quote concurrently. Allocation always
	// works from fresh REST data, never from the dashboard caches.
	var (
		acct  domain.Account
		quote domain.Quote
	)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		acct, err = s.exchange.GetAccount(grpCtx)
		return err
	})
	grp.Go(func() error {
		var err error
		quote, err = s.exchange.GetQuote(grpCtx, s.symbol)
		return err
	})
	if err := grp.Wait(); err != nil {
		if errors.Is(err, domain.ErrMissingCredentials) {
			return s.finish(ctx, logger, skipped(res, "missing exchange credentials")), nil
		}
		if ctx.Err() != nil {
			return domain.AllocationResult{}, ctx.Err()
		}
		return domain.AllocationResult{}, fmt.Errorf("allocation_service: fetch state: %w", err)
	}

	mid, ok := quote.Mid()
	if !ok {
		return s.finish(ctx, logger, rejected(res, "no usable reference price")), nil
	}

	balances, err := s.normalizer.Normalize(acct, mid)
	if err != nil {
		return s.finish(ctx, logger, rejected(res, err.Error())), nil
	}

	cmp := s.comparison.Evaluate(balances)
	if cmp.Action == engine.ActionSkip {
		return s.finish(ctx, logger, skipped(res, cmp.Reason)), nil
	}

	side := cmp.PreferredSide

	// Size the trade: the full deviation, clamped to the notional band, then
	// floored to the exchange quantity step.
	notional := decimal.Min(cmp.Diff.Abs(), s.maxNotional)
	if notional.LessThan(s.minNotional) {
		return s.finish(ctx, logger, skipped(res,
			fmt.Sprintf("deviation %s below minimum notional %s", notional.Round(4), s.minNotional))), nil
	}

	qty := floorToStep(notional.Div(mid), s.quantityStep)
	if qty.Sign() <= 0 {
		return s.finish(ctx, logger, skipped(res, "trade quantity rounds to zero")), nil
	}

	book, err := s.exchange.GetDepth(ctx, s.symbol, s.depthLimit)
	if err != nil {
		if ctx.Err() != nil {
			return domain.AllocationResult{}, ctx.Err()
		}
		return domain.AllocationResult{}, fmt.Errorf("allocation_service: fetch depth: %w", err)
	}

	// Desired price is the touch of the book being walked, so the slippage
	// reference and the liquidity come from the same snapshot.
	desired := book.BestAsk()
	if side == domain.SideSell {
		desired = book.BestBid()
	}

	filled, weighted := s.depth.Compute(book, side, qty)
	assessment, err := s.slippage.Assess(side, desired, qty, filled, weighted)
	if err != nil {
		return s.finish(ctx, logger, rejected(res, err.Error())), nil
	}
	res.SlippagePct = assessment.SlippagePct
	res.ExpectedFill = assessment.ExpectedFill
	if !assessment.Acceptable {
		return s.finish(ctx, logger, rejected(res, assessment.Reason)), nil
	}

	limitPrice, ok := s.pricer.Price(side, book.BestBid(), book.BestAsk())
	if !ok {
		return s.finish(ctx, logger, rejected(res, "order book cannot be priced")), nil
	}

	price, err := domain.NewPrice(limitPrice)
	if err != nil {
		return s.finish(ctx, logger, rejected(res, err.Error())), nil
	}
	quantity, err := domain.NewQuantity(qty)
	if err != nil {
		return s.finish(ctx, logger, rejected(res, err.Error())), nil
	}

	cmd := domain.OrderCommand{
		Symbol:      s.symbol,
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Quantity:    quantity,
		Price:       price,
		TimeInForce: domain.TimeInForceGTC,
		// The request ID doubles as the exchange idempotency key: a retried
		// submission with the same client order ID cannot double-execute.
		ClientOrderID: res.RequestID,
	}

	res.Action = domain.AllocationAction(side)

	if s.dryRun {
		res.Status = domain.AllocationStatusOK
		res.Reason = fmt.Sprintf("dry run: would place %s %s @ %s", side, quantity, price)
		return s.finish(ctx, logger, res), nil
	}

	order, err := s.exchange.PlaceOrder(ctx, cmd)
	if err != nil {
		res.Status = domain.AllocationStatusError
		res.Action = domain.AllocationActionFailed
		res.Reason = err.Error()
		return s.finish(ctx, logger, res), nil
	}

	res.Status = domain.AllocationStatusOK
	res.OrderID = order.OrderID

	if s.orders != nil {
		if err := s.orders.Create(ctx, order); err != nil {
			logger.WarnContext(ctx, "order persist failed",
				slog.String("order_id", order.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.finish(ctx, logger, res), nil
}

// History returns recent allocation runs from the store, newest first.
func (s *AllocationService) History(ctx context.Context, opts domain.ListOpts) ([]domain.AllocationResult, error) {
	if s.runs == nil {
		return nil, nil
	}
	runs, err := s.runs.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("allocation_service: list runs: %w", err)
	}
	return runs, nil
}

// finish persists, notifies, and logs the terminal result. Persistence and
// notification failures are logged, never propagated: the decision already
// happened and (possibly) an order is resting on the exchange.
func (s *AllocationService) finish(ctx context.Context, logger *slog.Logger, res domain.AllocationResult) domain.AllocationResult {
	if s.runs != nil {
		if err := s.runs.Create(ctx, res); err != nil {
			logger.WarnContext(ctx, "allocation run persist failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAllocation(ctx, res); err != nil {
			logger.WarnContext(ctx, "allocation notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	logger.InfoContext(ctx, "allocation run finished",
		slog.String("status", string(res.Status)),
		slog.String("action", string(res.Action)),
		slog.String("order_id", res.OrderID),
		slog.String("reason", res.Reason),
	)
	return res
}

func skipped(res domain.AllocationResult, reason string) domain.AllocationResult {
	res.Status = domain.AllocationStatusSkipped
	res.Action = domain.AllocationActionSkip
	res.Reason = reason
	return res
}

func rejected(res domain.AllocationResult, reason string) domain.AllocationResult {
	res.Status = domain.AllocationStatusRejected
	res.Action = domain.AllocationActionRejected
	res.Reason = reason
	return res
}

// floorToStep rounds qty down to the nearest exchange quantity increment.
func floorToStep(qty, step decimal.Decimal) decimal.Decimal {
	return qty.Div(step).Floor().Mul(step)
}
