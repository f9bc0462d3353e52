package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
	"github.com/qrlworks/qrlbot/internal/server/handler"
	"github.com/qrlworks/qrlbot/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port           int
	CORSOrigins    []string
	APIKey         string // if empty, authentication is disabled
	SchedulerToken string // alternate credential for /tasks endpoints
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Account     *handler.AccountHandler
	Market      *handler.MarketHandler
	Orders      *handler.OrderHandler
	Allocations *handler.AllocationHandler
	Tasks       *handler.TasksHandler
}

// Server is the headless HTTP API for the allocation bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (logging, CORS, auth) applied. limiter may be nil to
// disable rate limiting on the mutating endpoints.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Mutating endpoints go through the redis rate limiter, each surface
	// under its own scope.
	guard := func(scope string, h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return middleware.RateLimit(limiter, scope, 10, time.Minute)(h)
	}

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/account/balances", handlers.Account.GetBalances)

	mux.HandleFunc("GET /api/market/price", handlers.Market.GetPrice)
	mux.HandleFunc("GET /api/market/depth", handlers.Market.GetDepth)
	mux.HandleFunc("GET /api/market/klines", handlers.Market.GetKlines)

	mux.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", handlers.Orders.GetOrder)
	mux.Handle("POST /api/orders", guard("orders", handlers.Orders.PlaceOrder))
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)

	mux.HandleFunc("GET /api/allocations", handlers.Allocations.ListAllocations)

	// The allocation trigger accepts GET as well so plain cron hooks work.
	mux.Handle("POST /tasks/allocation", guard("tasks", handlers.Tasks.TriggerAllocation))
	mux.HandleFunc("GET /tasks/allocation", handlers.Tasks.TriggerAllocation)

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, cfg.SchedulerToken)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the composed handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
