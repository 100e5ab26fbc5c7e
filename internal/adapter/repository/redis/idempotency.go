package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/casinowallet/internal/infrastructure/metrics"
)

// IdempotencyStore implements usecase.IdempotencyStore using Redis. It only
// caches committed outcomes; the ledger tables stay authoritative.
type IdempotencyStore struct {
	client  redis.Cmdable
	prefix  string
	metrics *metrics.Metrics
}

// NewIdempotencyStore creates a new IdempotencyStore. m may be nil.
func NewIdempotencyStore(client redis.Cmdable, m *metrics.Metrics) *IdempotencyStore {
	return &IdempotencyStore{
		client:  client,
		prefix:  "idempotency:",
		metrics: m,
	}
}

// Get returns the cached outcome for key, if present.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.count("get")

	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.fail("get")
		return nil, false, err
	}

	return val, true, nil
}

// Set caches the outcome for key. An existing entry is kept, so the first
// committed outcome wins.
func (s *IdempotencyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.count("set")

	if err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		s.fail("set")
		return err
	}
	return nil
}

func (s *IdempotencyStore) count(op string) {
	if s.metrics != nil {
		s.metrics.RedisOperations.WithLabelValues(op).Inc()
	}
}

func (s *IdempotencyStore) fail(op string) {
	if s.metrics != nil {
		s.metrics.RedisErrors.WithLabelValues(op).Inc()
	}
}
