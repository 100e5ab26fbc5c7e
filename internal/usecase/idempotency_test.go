package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
	"github.com/iho/casinowallet/internal/usecase"
	"github.com/iho/casinowallet/internal/usecase/mocks"
)

func TestParseMismatchPolicy(t *testing.T) {
	p, err := usecase.ParseMismatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, usecase.MismatchReplay, p)

	p, err = usecase.ParseMismatchPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, usecase.MismatchReject, p)

	_, err = usecase.ParseMismatchPolicy("ignore")
	assert.Error(t, err)
}

func TestIdempotencyGuard_RememberAndRecall(t *testing.T) {
	cache := mocks.NewMemoryIdempotencyStore()
	guard := usecase.NewIdempotencyGuard(usecase.GuardConfig{Cache: cache, Logger: zerolog.Nop()})
	ctx := context.Background()

	entry := &domain.LedgerEntry{ID: 7, PlayerID: "p1", DeltaMinorUnits: -300, BalanceAfter: 700}
	guard.Remember(ctx, domain.LedgerLegacy, "bet-1", "fp", entry)

	var got domain.LedgerEntry
	fp, ok := guard.Recall(ctx, domain.LedgerLegacy, "bet-1", &got)
	require.True(t, ok)
	assert.Equal(t, "fp", fp)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, int64(700), got.BalanceAfter)

	// the two ledgers have separate key spaces
	_, ok = guard.Recall(ctx, domain.LedgerUnified, "bet-1", &got)
	assert.False(t, ok)
}

func TestIdempotencyGuard_CacheFailuresAreMisses(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockIdempotencyStore(ctrl)
	cache.EXPECT().Get(gomock.Any(), "unified:k").Return(nil, false, errors.New("redis down"))
	cache.EXPECT().Get(gomock.Any(), "unified:junk").Return([]byte("{not json"), true, nil)
	cache.EXPECT().Set(gomock.Any(), "unified:k", gomock.Any(), 24*time.Hour).Return(errors.New("redis down"))

	guard := usecase.NewIdempotencyGuard(usecase.GuardConfig{Cache: cache, Logger: zerolog.Nop()})
	ctx := context.Background()

	var txn domain.WalletTransaction
	_, ok := guard.Recall(ctx, domain.LedgerUnified, "k", &txn)
	assert.False(t, ok)

	_, ok = guard.Recall(ctx, domain.LedgerUnified, "junk", &txn)
	assert.False(t, ok)

	guard.Remember(ctx, domain.LedgerUnified, "k", "fp", &domain.WalletTransaction{ID: "t1"})
}

func TestIdempotencyGuard_WithoutCache(t *testing.T) {
	guard := usecase.NewIdempotencyGuard(usecase.GuardConfig{Logger: zerolog.Nop()})

	var txn domain.WalletTransaction
	_, ok := guard.Recall(context.Background(), domain.LedgerUnified, "k", &txn)
	assert.False(t, ok)
	guard.Remember(context.Background(), domain.LedgerUnified, "k", "fp", &txn)
}

func TestIdempotencyGuard_Admit(t *testing.T) {
	tests := []struct {
		name       string
		policy     usecase.MismatchPolicy
		stored     string
		incoming   string
		wantErr    error
		mismatches float64
	}{
		{name: "same fingerprint", policy: usecase.MismatchReject, stored: "a", incoming: "a"},
		{name: "unknown stored fingerprint", policy: usecase.MismatchReject, stored: "", incoming: "a"},
		{name: "mismatch replayed", policy: usecase.MismatchReplay, stored: "a", incoming: "b", mismatches: 1},
		{name: "mismatch rejected", policy: usecase.MismatchReject, stored: "a", incoming: "b", wantErr: domain.ErrIdempotencyKeyReused, mismatches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			guard := usecase.NewIdempotencyGuard(usecase.GuardConfig{Policy: tt.policy, Logger: zerolog.Nop(), Metrics: m})

			err := guard.Admit(domain.LedgerUnified, "k", tt.stored, tt.incoming, "store")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0.0, testutil.ToFloat64(m.IdempotentReplays.WithLabelValues("unified", "store")))
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1.0, testutil.ToFloat64(m.IdempotentReplays.WithLabelValues("unified", "store")))
			}
			assert.Equal(t, tt.mismatches, testutil.ToFloat64(m.IdempotencyMismatches.WithLabelValues("unified")))
		})
	}
}
