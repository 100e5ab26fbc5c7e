package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Legacy wallet metrics
	LegacyPostings  *prometheus.CounterVec
	LegacyRollbacks prometheus.Counter

	// Unified ledger metrics
	WalletTransactions *prometheus.CounterVec
	WalletRollbacks    prometheus.Counter
	TransferAmount     prometheus.Histogram
	PrincipalsCreated  *prometheus.CounterVec

	// Engine metrics
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec

	// Idempotency metrics
	IdempotentReplays     *prometheus.CounterVec
	IdempotencyMismatches *prometheus.CounterVec

	// Database metrics
	ContentionRetries prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Audit and outbox metrics
	AuditRecords    *prometheus.CounterVec
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New creates all Prometheus metrics and registers them with reg.
// A nil reg registers with the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		LegacyPostings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_legacy_postings_total",
				Help: "Total legacy ledger postings by reason and direction",
			},
			[]string{"reason", "direction"},
		),
		LegacyRollbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_legacy_rollbacks_total",
			Help: "Total legacy ledger rollbacks",
		}),

		WalletTransactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transactions_total",
				Help: "Total unified wallet transactions by type",
			},
			[]string{"type"},
		),
		WalletRollbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transaction_rollbacks_total",
			Help: "Total unified wallet rollbacks",
		}),
		TransferAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_transfer_amount",
			Help:    "Unified transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		PrincipalsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_principals_created_total",
				Help: "Total principals created by type",
			},
			[]string{"type"},
		),

		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_operation_duration_seconds",
				Help:    "Duration of wallet operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_operation_errors_total",
				Help: "Total wallet operation errors by class",
			},
			[]string{"operation", "class"},
		),

		IdempotentReplays: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_idempotent_replays_total",
				Help: "Total requests answered from a prior outcome",
			},
			[]string{"ledger", "source"},
		),
		IdempotencyMismatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_idempotency_mismatches_total",
				Help: "Total replays whose payload differed from the original",
			},
			[]string{"ledger"},
		),

		ContentionRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_db_contention_retries_total",
			Help: "Total retries after lock timeouts, deadlocks or serialization failures",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RedisOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		RateLimitHits: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		AuditRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_audit_records_total",
				Help: "Total audit records written",
			},
			[]string{"ledger"},
		),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_outbox_failures_total",
			Help: "Total outbox events that failed to publish",
		}),
	}
}
