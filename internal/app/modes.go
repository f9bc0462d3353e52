package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qrlworks/qrlbot/internal/feed"
	"github.com/qrlworks/qrlbot/internal/scheduler"
	"github.com/qrlworks/qrlbot/internal/server"
	"github.com/qrlworks/qrlbot/internal/server/handler"
	"github.com/qrlworks/qrlbot/internal/service"
)

// services bundles the constructed service layer shared by all modes.
type services struct {
	allocations *service.AllocationService
	market      *service.MarketService
	account     *service.AccountService
	orders      *service.OrderService
}

// buildServices constructs the service layer from the wired dependencies.
func (a *App) buildServices(deps *Dependencies) (*services, error) {
	alloc := a.cfg.Allocation

	params := service.AllocationParams{
		TargetRatio:    alloc.TargetRatio,
		TolerancePct:   alloc.TolerancePct,
		MinNotional:    alloc.MinNotional,
		MaxNotional:    alloc.MaxNotional,
		DepthLimit:     alloc.DepthLimit,
		SlippagePct:    alloc.SlippagePct,
		PriceBufferPct: alloc.PriceBufferPct,
		PriceCap:       alloc.PriceCap,
		PriceTick:      alloc.PriceTick,
		QuantityStep:   alloc.QuantityStep,
		FreeOnly:       alloc.FreeOnly,
		DryRun:         alloc.DryRun,
		GuardPolicy:    guardPolicy(alloc.GuardPolicy),
		Timeout:        alloc.Timeout.Duration,
	}

	allocations, err := service.NewAllocationService(
		deps.Exchange,
		deps.Symbol,
		params,
		deps.AllocationStore,
		deps.OrderStore,
		deps.Notifier,
		a.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("app: allocation service: %w", err)
	}

	return &services{
		allocations: allocations,
		market:      service.NewMarketService(deps.Exchange, deps.Symbol, deps.QuoteCache, deps.BookCache, a.logger),
		account:     service.NewAccountService(deps.Exchange, deps.Symbol, alloc.FreeOnly, a.logger),
		orders:      service.NewOrderService(deps.Exchange, deps.Symbol, deps.OrderStore, a.logger),
	}, nil
}

// guardPolicy maps the configured policy string onto the guard constant,
// defaulting to coalescing.
func guardPolicy(s string) service.GuardPolicy {
	if strings.EqualFold(s, string(service.GuardReject)) {
		return service.GuardReject
	}
	return service.GuardCoalesce
}

// ServerMode runs the HTTP API and the market data feed, without the
// allocation scheduler. Allocation runs still happen on demand through the
// /tasks/allocation endpoint.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// TradeMode runs the allocation scheduler and the market data feed. The HTTP
// API is started as well when enabled in configuration.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startScheduler(ctx, g, svcs)
	a.startFeed(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}
	return g.Wait()
}

// FullMode runs everything: scheduler, feed, HTTP API, and the archival
// sweep to S3.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startScheduler(ctx, g, svcs)
	a.startFeed(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, svcs)

	if deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveEvery.Duration
		if interval <= 0 {
			interval = 24 * time.Hour
		}
		archive := scheduler.NewArchiveRunner(
			deps.Archiver,
			deps.LockManager,
			deps.Notifier,
			a.cfg.S3.RetentionDays,
			interval,
			a.logger,
		)
		g.Go(func() error {
			err := archive.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// startScheduler adds the periodic allocation runner to the errgroup.
func (a *App) startScheduler(ctx context.Context, g *errgroup.Group, svcs *services) {
	if !a.cfg.Scheduler.Enabled {
		a.logger.InfoContext(ctx, "allocation scheduler disabled by configuration")
		return
	}

	runner := scheduler.NewRunner(svcs.allocations, a.cfg.Scheduler.Interval.Duration, a.logger)
	g.Go(func() error {
		err := runner.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}

// startFeed adds the websocket market data feed to the errgroup. The feed
// only keeps the dashboard caches warm; a feed outage never blocks trading.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Mexc.WsURL == "" {
		return
	}

	wsFeed := feed.NewMexcWSFeed(a.cfg.Mexc.WsURL, deps.Symbol, deps.QuoteCache, deps.BookCache, a.logger)
	g.Go(func() error {
		defer wsFeed.Close()
		err := wsFeed.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}

// startHTTPServer adds the HTTP API goroutine plus a shutdown watcher to the
// errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.Exchange, a.logger),
		Account:     handler.NewAccountHandler(svcs.account, a.logger),
		Market:      handler.NewMarketHandler(svcs.market, a.logger),
		Orders:      handler.NewOrderHandler(svcs.orders, a.logger),
		Allocations: handler.NewAllocationHandler(svcs.allocations, a.logger),
		Tasks:       handler.NewTasksHandler(svcs.allocations, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		APIKey:         a.cfg.Server.APIKey,
		SchedulerToken: a.cfg.Server.SchedulerToken,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return nil
	})
}
