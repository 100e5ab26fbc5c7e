package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/casinowallet/internal/adapter/http/handler"
	"github.com/iho/casinowallet/internal/adapter/http/middleware"
	"github.com/iho/casinowallet/internal/infrastructure/auth"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LegacyHandler         *handler.LegacyHandler
	TransactionHandler    *handler.TransactionHandler
	PrincipalHandler      *handler.PrincipalHandler
	AuditHandler          *handler.AuditHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler

	JWTManager  *auth.JWTManager
	RateLimiter *middleware.RateLimiter // optional
	Metrics     *metrics.Metrics        // optional
	Gatherer    prometheus.Gatherer     // serves /metrics when set
	Logger      zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.JWTManager, cfg.Metrics))
		r.Use(middleware.BrandScope)

		// Gateway-facing integer ledger
		r.Route("/legacy", func(r chi.Router) {
			r.Get("/players/{playerID}/balance", cfg.LegacyHandler.Balance)
			r.Post("/debit", cfg.LegacyHandler.Debit)
			r.Post("/credit", cfg.LegacyHandler.Credit)
			r.Post("/rollback", cfg.LegacyHandler.Rollback)
		})

		// Unified decimal ledger
		r.Route("/wallet", func(r chi.Router) {
			r.Post("/transactions", cfg.TransactionHandler.Create)
			r.Get("/transactions", cfg.TransactionHandler.List)
			r.Post("/transactions/{reference}/rollback", cfg.TransactionHandler.Rollback)
			r.Get("/balances/{type}/{id}", cfg.TransactionHandler.Balance)
		})

		r.Post("/principals", cfg.PrincipalHandler.Create)
		r.Get("/audit", cfg.AuditHandler.List)
		r.Get("/reconciliation", cfg.ReconciliationHandler.Run)
	})

	return r
}
