package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

func bet(playerID string, amount int64, ref string) domain.LegacyPosting {
	return domain.LegacyPosting{
		PlayerID:         playerID,
		AmountMinorUnits: amount,
		Reason:           domain.ReasonBet,
		RoundID:          ptr("round-1"),
		ExternalRef:      ref,
		GameCode:         ptr("book-of-go"),
		Provider:         ptr("slots"),
	}
}

func TestLegacyWallet_BetAndRollback(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	res, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 300, "bet-1"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(700), res.Balance)
	assert.Equal(t, int64(-300), res.Entry.DeltaMinorUnits)
	assert.Equal(t, int64(1000), res.Entry.BalanceBefore)
	assert.Equal(t, int64(700), res.Entry.BalanceAfter)
	assert.Equal(t, brandA, res.Entry.BrandID)

	rb, err := env.legacy.Rollback(ctx, providerA, scopeA, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rb.Balance)
	assert.Equal(t, domain.ReasonRollback, rb.Entry.Reason)
	assert.Equal(t, int64(300), rb.Entry.DeltaMinorUnits)
	require.NotNil(t, rb.Entry.RollbackOf)
	assert.Equal(t, res.Entry.ID, *rb.Entry.RollbackOf)
	assert.Equal(t, "rollback:bet-1", *rb.Entry.ExternalRef)

	_, err = env.legacy.Rollback(ctx, providerA, scopeA, "bet-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyRolledBack)

	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 3)
	assert.Len(t, env.store.AuditRecords(), 3)

	events := env.store.OutboxEvents()
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventTypeLedgerEntryRolledBack, events[2].EventType)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LegacyRollbacks))
}

func TestLegacyWallet_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	env.grant(t, "p1", 100, "grant-1")

	_, err := env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 101, "bet-1"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(100), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 1)
	assert.Len(t, env.store.AuditRecords(), 1)
}

func TestLegacyWallet_RollbackOfCreditNeedsFunds(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 500, "grant-1")

	_, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 400, "bet-1"))
	require.NoError(t, err)

	_, err = env.legacy.Rollback(ctx, operatorA, scopeA, "grant-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(100), env.store.LegacyBalance("p1"))
}

func TestLegacyWallet_Replay(t *testing.T) {
	tests := []struct {
		name     string
		policy   usecase.MismatchPolicy
		second   domain.LegacyPosting
		wantErr  error
		replayed bool
	}{
		{
			name:     "same payload",
			policy:   usecase.MismatchReplay,
			second:   bet("p1", 300, "bet-1"),
			replayed: true,
		},
		{
			name:     "different amount replays original",
			policy:   usecase.MismatchReplay,
			second:   bet("p1", 999, "bet-1"),
			replayed: true,
		},
		{
			name:    "different amount rejected",
			policy:  usecase.MismatchReject,
			second:  bet("p1", 999, "bet-1"),
			wantErr: domain.ErrIdempotencyKeyReused,
		},
		{
			name:    "other player always rejected",
			policy:  usecase.MismatchReplay,
			second:  bet("p2", 300, "bet-1"),
			wantErr: domain.ErrIdempotencyKeyReused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.policy)
			ctx := t.Context()
			env.grant(t, "p1", 1000, "grant-1")
			env.grant(t, "p2", 1000, "grant-2")

			first, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 300, "bet-1"))
			require.NoError(t, err)

			res, err := env.legacy.Debit(ctx, providerA, scopeA, tt.second)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.replayed, res.Replayed)
				assert.Equal(t, first.Entry.ID, res.Entry.ID)
				assert.Equal(t, int64(700), res.Balance)
			}

			assert.Equal(t, int64(700), env.store.LegacyBalance("p1"))
			assert.Equal(t, int64(1000), env.store.LegacyBalance("p2"))
			assert.Len(t, env.store.LedgerEntries(), 3)
		})
	}
}

func TestLegacyWallet_ReplayFromStoreWhenCacheIsEmpty(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	first, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 300, "bet-1"))
	require.NoError(t, err)

	env.cache.GetFunc = func(context.Context, string) ([]byte, bool, error) {
		return nil, false, errors.New("cache down")
	}

	res, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 300, "bet-1"))
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, first.Entry.ID, res.Entry.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.IdempotentReplays.WithLabelValues("legacy", "store")))
}

func TestLegacyWallet_ConcurrentSameReference(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	const workers = 10
	var wg sync.WaitGroup
	results := make([]*usecase.LegacyResult, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 100, "bet-1"))
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(900), results[i].Balance)
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, int64(900), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 2)
}

func TestLegacyWallet_ConcurrentRollbacks(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	_, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 250, "bet-1"))
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.legacy.Rollback(ctx, providerA, scopeA, "bet-1")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyRolledBack)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
}

func TestLegacyWallet_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		scope   domain.BrandScope
		posting domain.LegacyPosting
		wantErr error
	}{
		{
			name:    "provider cannot grant",
			actor:   providerA,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "p1", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrTransactionTypeForbidden,
		},
		{
			name:    "cashier outside hierarchy",
			actor:   cashier1,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "p3", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrOutsideHierarchy,
		},
		{
			name:    "player of another brand",
			actor:   superAdmin,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "p4", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrTenantIsolation,
		},
		{
			name:    "operator of another brand",
			actor:   operatorB,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "p1", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrBrandMismatch,
		},
		{
			name:    "no brand context",
			actor:   superAdmin,
			scope:   domain.BrandScope{},
			posting: domain.LegacyPosting{PlayerID: "p1", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrBrandContextRequired,
		},
		{
			name:    "zero amount",
			actor:   operatorA,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "p1", AmountMinorUnits: 0, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown player",
			actor:   operatorA,
			scope:   scopeA,
			posting: domain.LegacyPosting{PlayerID: "nobody", AmountMinorUnits: 10, Reason: domain.ReasonAdminGrant, ExternalRef: "g"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, usecase.MismatchReplay)

			_, err := env.legacy.Credit(t.Context(), tt.actor, tt.scope, tt.posting)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.store.LedgerEntries())
			assert.Empty(t, env.store.AuditRecords())
		})
	}
}

func TestLegacyWallet_GetBalance(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1234, "grant-1")

	bal, err := env.legacy.GetBalance(ctx, operatorA, scopeA, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), bal.BalanceMinorUnits)

	_, err = env.legacy.GetBalance(ctx, cashier1, scopeA, "p3")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.legacy.GetBalance(ctx, operatorB, scopeB, "p1")
	assert.ErrorIs(t, err, domain.ErrTenantIsolation)
}

func TestLegacyWallet_RollbackUnknownReference(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)

	_, err := env.legacy.Rollback(t.Context(), providerA, scopeA, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.legacy.Rollback(t.Context(), cashier1, scopeA, "missing")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLegacyWallet_RollbackOfRollback(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	_, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 100, "bet-1"))
	require.NoError(t, err)
	_, err = env.legacy.Rollback(ctx, providerA, scopeA, "bet-1")
	require.NoError(t, err)

	_, err = env.legacy.Rollback(ctx, providerA, scopeA, "rollback:bet-1")
	assert.ErrorIs(t, err, domain.ErrRollbackOfRollback)
}

func TestLegacyWallet_ReservedReferenceCannotBlockRollback(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	ctx := t.Context()
	env.grant(t, "p1", 1000, "grant-1")

	_, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 100, "bet-1"))
	require.NoError(t, err)

	_, err = env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 50, "rollback:bet-1"))
	require.ErrorIs(t, err, domain.ErrReservedIdempotencyKey)
	assert.Equal(t, int64(900), env.store.LegacyBalance("p1"))

	rb, err := env.legacy.Rollback(ctx, providerA, scopeA, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rb.Balance)
	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
}

func TestLegacyWallet_CancelledBeforeCommitLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	env.grant(t, "p1", 1000, "grant-1")

	holder, err := env.store.Begin(t.Context())
	require.NoError(t, err)
	_, err = env.store.LegacyBalances().GetForUpdate(t.Context(), holder, "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		_, err := env.legacy.Debit(ctx, providerA, scopeA, bet("p1", 100, "bet-1"))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("debit did not stop after cancel")
	}
	require.NoError(t, holder.Rollback(t.Context()))

	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 1)
	assert.Len(t, env.store.AuditRecords(), 1)
	assert.Len(t, env.store.OutboxEvents(), 1)

	res, err := env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 100, "bet-1"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(900), res.Balance)
}

func TestLegacyWallet_FailedCommitLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	env.grant(t, "p1", 1000, "grant-1")

	commitErr := errors.New("connection reset")
	env.store.CommitFunc = func(ctx context.Context) error { return commitErr }

	_, err := env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 100, "bet-1"))
	require.ErrorIs(t, err, commitErr)

	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 1)
	assert.Len(t, env.store.AuditRecords(), 1)
	assert.Len(t, env.store.OutboxEvents(), 1)

	env.store.CommitFunc = nil
	res, err := env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 100, "bet-1"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(900), res.Balance)
}

func TestLegacyWallet_LockContentionSurfacesAfterRetries(t *testing.T) {
	env := newTestEnv(t, usecase.MismatchReplay)
	env.grant(t, "p1", 1000, "grant-1")
	env.store.LockTimeout = 10 * time.Millisecond

	holder, err := env.store.Begin(t.Context())
	require.NoError(t, err)
	_, err = env.store.LegacyBalances().GetForUpdate(t.Context(), holder, "p1")
	require.NoError(t, err)

	before := env.retrier.Attempts()
	_, err = env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 100, "bet-1"))
	require.ErrorIs(t, err, domain.ErrContention)
	assert.Equal(t, before+3, env.retrier.Attempts())
	assert.Equal(t, int64(1000), env.store.LegacyBalance("p1"))
	assert.Len(t, env.store.LedgerEntries(), 1)

	require.NoError(t, holder.Rollback(t.Context()))

	res, err := env.legacy.Debit(t.Context(), providerA, scopeA, bet("p1", 100, "bet-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(900), res.Balance)
}
