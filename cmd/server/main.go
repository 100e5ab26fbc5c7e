package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/casinowallet/internal/adapter/http"
	"github.com/iho/casinowallet/internal/adapter/http/handler"
	"github.com/iho/casinowallet/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/casinowallet/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/casinowallet/internal/adapter/repository/redis"
	"github.com/iho/casinowallet/internal/infrastructure/auth"
	"github.com/iho/casinowallet/internal/infrastructure/config"
	"github.com/iho/casinowallet/internal/infrastructure/eventpublisher"
	"github.com/iho/casinowallet/internal/infrastructure/logger"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
	"github.com/iho/casinowallet/internal/infrastructure/postgres"
	"github.com/iho/casinowallet/internal/infrastructure/redis"
	"github.com/iho/casinowallet/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "casinowallet",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
		LockTimeout: cfg.LockTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	cache, cachePinger, closeCache, err := openReplayCache(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeCache()
	if cache != nil {
		log.Info().Msg("connected to redis")
	}

	policy, err := usecase.ParseMismatchPolicy(cfg.IdempotencyMismatchPolicy)
	if err != nil {
		return err
	}

	// Initialize repositories
	brandRepo := postgresRepo.NewBrandRepository(pool)
	principalRepo := postgresRepo.NewPrincipalRepository(pool)
	legacyRepo := postgresRepo.NewLegacyBalanceRepository(pool)
	entryRepo := postgresRepo.NewLedgerEntryRepository(pool)
	txnRepo := postgresRepo.NewWalletTransactionRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)

	scope := usecase.NewScopeResolver(brandRepo, principalRepo)
	deps := &usecase.LedgerDeps{
		TxManager: postgresRepo.NewTxManager(pool),
		Retrier: postgresRepo.NewRetrier(postgresRepo.RetryConfig{
			MaxRetries:      cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		}, log, m),
		AuditRepo: auditRepo,
		Outbox:    outboxRepo,
		IDGen:     postgresRepo.NewULIDGenerator(),
		Scope:     scope,
		Guard: usecase.NewIdempotencyGuard(usecase.GuardConfig{
			Cache:   cache,
			TTL:     cfg.IdempotencyTTL,
			Policy:  policy,
			Logger:  log,
			Metrics: m,
		}),
		Metrics: m,
		Logger:  log,
	}

	// Initialize use cases
	legacyUC := usecase.NewLegacyWalletUseCase(deps, legacyRepo, entryRepo)
	transactionUC := usecase.NewTransactionUseCase(deps, principalRepo, txnRepo, postgresRepo.NewOverdraftRepository(pool))
	principalUC := usecase.NewPrincipalUseCase(deps, principalRepo, legacyRepo, entryRepo, txnRepo)
	auditUC := usecase.NewAuditUseCase(auditRepo, scope)
	reconciliationUC := usecase.NewReconciliationUseCase(postgresRepo.NewReconciliationRepository(pool), log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LegacyHandler:         handler.NewLegacyHandler(legacyUC),
		TransactionHandler:    handler.NewTransactionHandler(transactionUC),
		PrincipalHandler:      handler.NewPrincipalHandler(principalUC),
		AuditHandler:          handler.NewAuditHandler(auditUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HealthHandler:         handler.NewHealthHandler(handler.PingFunc(pool.Ping), cachePinger),
		JWTManager:            auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration),
		RateLimiter:           rateLimiter,
		Metrics:               m,
		Gatherer:              reg,
		Logger:                log,
	})

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	go func() {
		if err := publisher.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()
	go rateLimiter.StartCleanup(10*time.Minute, time.Hour, bgCtx.Done())

	server := newHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// openReplayCache connects the redis replay cache when enabled. With the cache
// disabled every return value except closeFn is nil and idempotency relies on
// the database alone.
func openReplayCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (usecase.IdempotencyStore, handler.Pinger, func(), error) {
	if !cfg.RedisEnabled {
		return nil, nil, func() {}, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	pinger := handler.PingFunc(func(ctx context.Context) error {
		return redis.Ping(ctx, client)
	})

	return redisRepo.NewIdempotencyStore(client, m), pinger, func() { client.Close() }, nil
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}
