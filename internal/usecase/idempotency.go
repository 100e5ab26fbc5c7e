package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
)

// MismatchPolicy decides what happens when a known idempotency key arrives
// with a different payload.
type MismatchPolicy string

const (
	// MismatchReplay returns the original outcome and logs the mismatch.
	MismatchReplay MismatchPolicy = "replay"
	// MismatchReject fails the request with domain.ErrIdempotencyKeyReused.
	MismatchReject MismatchPolicy = "reject"
)

// ParseMismatchPolicy parses a configured policy name.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(s) {
	case MismatchReplay, MismatchReject:
		return MismatchPolicy(s), nil
	case "":
		return MismatchReplay, nil
	}
	return "", fmt.Errorf("unknown idempotency mismatch policy %q", s)
}

// IdempotencyGuard answers repeated requests from their committed outcome.
// The authoritative record is the unique key in the ledger tables; the
// optional cache only saves a database round trip.
type IdempotencyGuard struct {
	cache   IdempotencyStore
	ttl     time.Duration
	policy  MismatchPolicy
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// GuardConfig configures an IdempotencyGuard.
type GuardConfig struct {
	Cache   IdempotencyStore // optional
	TTL     time.Duration
	Policy  MismatchPolicy
	Logger  zerolog.Logger
	Metrics *metrics.Metrics // optional
}

// NewIdempotencyGuard creates a new IdempotencyGuard.
func NewIdempotencyGuard(cfg GuardConfig) *IdempotencyGuard {
	if cfg.TTL == 0 {
		cfg.TTL = IdempotencyKeyTTL
	}
	if cfg.Policy == "" {
		cfg.Policy = MismatchReplay
	}

	return &IdempotencyGuard{
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

type cachedOutcome struct {
	Fingerprint string          `json:"fingerprint"`
	Outcome     json.RawMessage `json:"outcome"`
}

// Recall loads a cached outcome into out. Cache failures are treated as misses.
func (g *IdempotencyGuard) Recall(ctx context.Context, ledger domain.LedgerKind, key string, out any) (string, bool) {
	if g.cache == nil {
		return "", false
	}

	raw, ok, err := g.cache.Get(ctx, cacheKey(ledger, key))
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("idempotency cache read failed")
		return "", false
	}
	if !ok {
		return "", false
	}

	var cached cachedOutcome
	if err := json.Unmarshal(raw, &cached); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency cache entry")
		return "", false
	}
	if err := json.Unmarshal(cached.Outcome, out); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency cache entry")
		return "", false
	}

	return cached.Fingerprint, true
}

// Remember caches a committed outcome. Failures are logged and ignored.
func (g *IdempotencyGuard) Remember(ctx context.Context, ledger domain.LedgerKind, key, fingerprint string, outcome any) {
	if g.cache == nil {
		return
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("cannot encode outcome for idempotency cache")
		return
	}
	raw, err := json.Marshal(cachedOutcome{Fingerprint: fingerprint, Outcome: body})
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("cannot encode outcome for idempotency cache")
		return
	}

	if err := g.cache.Set(ctx, cacheKey(ledger, key), raw, g.ttl); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("idempotency cache write failed")
	}
}

// Admit decides whether a prior outcome recorded under key with
// storedFingerprint may be replayed for a request with fingerprint.
func (g *IdempotencyGuard) Admit(ledger domain.LedgerKind, key, storedFingerprint, fingerprint, source string) error {
	if storedFingerprint != "" && storedFingerprint != fingerprint {
		g.logger.Warn().
			Str("ledger", string(ledger)).
			Str("key", key).
			Str("policy", string(g.policy)).
			Msg("idempotency key reused with a different payload")

		if g.metrics != nil {
			g.metrics.IdempotencyMismatches.WithLabelValues(string(ledger)).Inc()
		}

		if g.policy == MismatchReject {
			return domain.ErrIdempotencyKeyReused
		}
	}

	if g.metrics != nil {
		g.metrics.IdempotentReplays.WithLabelValues(string(ledger), source).Inc()
	}

	return nil
}

func cacheKey(ledger domain.LedgerKind, key string) string {
	return string(ledger) + ":" + key
}
