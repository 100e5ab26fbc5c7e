package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/casinowallet/internal/domain"
)

// LegacyResult is the outcome of a legacy wallet operation.
type LegacyResult struct {
	Entry    *domain.LedgerEntry
	Balance  int64
	Replayed bool
}

// LegacyWalletUseCase is the gateway-facing integer minor-unit wallet.
type LegacyWalletUseCase struct {
	deps        *LedgerDeps
	balanceRepo LegacyBalanceRepository
	entryRepo   LedgerEntryRepository
}

// NewLegacyWalletUseCase creates a new LegacyWalletUseCase.
func NewLegacyWalletUseCase(
	deps *LedgerDeps,
	balanceRepo LegacyBalanceRepository,
	entryRepo LedgerEntryRepository,
) *LegacyWalletUseCase {
	return &LegacyWalletUseCase{
		deps:        deps,
		balanceRepo: balanceRepo,
		entryRepo:   entryRepo,
	}
}

// GetBalance returns the committed balance of a player.
func (uc *LegacyWalletUseCase) GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, playerID string) (*domain.LegacyBalance, error) {
	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	ref := domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: playerID}
	if _, err := uc.deps.Scope.AuthorizePrincipal(ctx, actor, scope, ref); err != nil {
		return nil, err
	}

	return uc.balanceRepo.Get(ctx, playerID)
}

// Debit decreases a player's balance. It fails with InsufficientFunds when
// the balance would go below zero.
func (uc *LegacyWalletUseCase) Debit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*LegacyResult, error) {
	posting.Direction = domain.DirectionDebit
	return uc.post(ctx, actor, requested, posting)
}

// Credit increases a player's balance.
func (uc *LegacyWalletUseCase) Credit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*LegacyResult, error) {
	posting.Direction = domain.DirectionCredit
	return uc.post(ctx, actor, requested, posting)
}

func (uc *LegacyWalletUseCase) post(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (result *LegacyResult, err error) {
	start := time.Now()
	defer func() { observe(uc.deps.Metrics, "legacy_"+string(posting.Direction), start, err) }()

	if err := posting.Validate(); err != nil {
		return nil, err
	}

	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}
	if _, err := uc.deps.Scope.AuthorizeLedgerPosting(ctx, actor, scope, posting.PlayerID, posting.Reason); err != nil {
		return nil, err
	}

	fingerprint := posting.Fingerprint()
	if result, err := uc.replay(ctx, posting, fingerprint); result != nil || err != nil {
		return result, err
	}

	err = uc.deps.retry(ctx, func() error {
		var err error
		result, err = uc.postOnce(ctx, actor, posting, fingerprint)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		// lost the race to a concurrent request with the same reference
		return uc.replayCommitted(ctx, posting, fingerprint)
	}
	if err != nil {
		return nil, err
	}

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.LegacyPostings.WithLabelValues(string(posting.Reason), string(posting.Direction)).Inc()
	}
	uc.deps.countAudit(domain.LedgerLegacy)
	uc.deps.Guard.Remember(ctx, domain.LedgerLegacy, posting.ExternalRef, fingerprint, result.Entry)

	return result, nil
}

func (uc *LegacyWalletUseCase) postOnce(ctx context.Context, actor domain.Actor, posting domain.LegacyPosting, fingerprint string) (*LegacyResult, error) {
	var entry *domain.LedgerEntry

	err := uc.deps.atomically(ctx, func(ctx context.Context, tx Transaction) error {
		balance, err := uc.balanceRepo.GetForUpdate(ctx, tx, posting.PlayerID)
		if err != nil {
			return err
		}

		if posting.Direction == domain.DirectionDebit {
			err = balance.ValidateDebit(posting.AmountMinorUnits)
		} else {
			err = balance.ValidateCredit(posting.AmountMinorUnits)
		}
		if err != nil {
			return err
		}

		ts := nowUTC()
		externalRef := posting.ExternalRef
		entry = &domain.LedgerEntry{
			PlayerID:        posting.PlayerID,
			BrandID:         balance.BrandID,
			DeltaMinorUnits: posting.Delta(),
			Reason:          posting.Reason,
			RoundID:         posting.RoundID,
			ExternalRef:     &externalRef,
			GameCode:        posting.GameCode,
			Provider:        posting.Provider,
			BalanceBefore:   balance.BalanceMinorUnits,
			BalanceAfter:    balance.BalanceMinorUnits + posting.Delta(),
			ActorID:         actor.ID,
			ActorRole:       actor.Role,
			PayloadHash:     fingerprint,
			CreatedAt:       ts,
		}

		return uc.apply(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &LegacyResult{Entry: entry, Balance: entry.BalanceAfter}, nil
}

// Rollback posts the opposite of the entry recorded under originalRef.
func (uc *LegacyWalletUseCase) Rollback(ctx context.Context, actor domain.Actor, requested domain.BrandScope, originalRef string) (result *LegacyResult, err error) {
	start := time.Now()
	defer func() { observe(uc.deps.Metrics, "legacy_rollback", start, err) }()

	if err := domain.ValidateIdempotencyKey(originalRef); err != nil {
		return nil, err
	}

	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanRollbackLedger() {
		return nil, fmt.Errorf("%w: %s may not roll back ledger entries", domain.ErrTransactionTypeForbidden, actor.Role)
	}

	original, err := uc.entryRepo.GetByExternalRef(ctx, originalRef)
	if err != nil {
		return nil, err
	}
	if original.Reason == domain.ReasonRollback {
		return nil, domain.ErrRollbackOfRollback
	}

	ref := domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: original.PlayerID}
	if _, err := uc.deps.Scope.AuthorizePrincipal(ctx, actor, scope, ref); err != nil {
		return nil, err
	}

	err = uc.deps.retry(ctx, func() error {
		var err error
		result, err = uc.rollbackOnce(ctx, actor, original)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		return nil, domain.ErrAlreadyRolledBack
	}
	if err != nil {
		return nil, err
	}

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.LegacyRollbacks.Inc()
	}
	uc.deps.countAudit(domain.LedgerLegacy)

	return result, nil
}

func (uc *LegacyWalletUseCase) rollbackOnce(ctx context.Context, actor domain.Actor, original *domain.LedgerEntry) (*LegacyResult, error) {
	var entry *domain.LedgerEntry

	err := uc.deps.atomically(ctx, func(ctx context.Context, tx Transaction) error {
		balance, err := uc.balanceRepo.GetForUpdate(ctx, tx, original.PlayerID)
		if err != nil {
			return err
		}

		prior, err := uc.entryRepo.GetRollbackOf(ctx, tx, original.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if prior != nil {
			return domain.ErrAlreadyRolledBack
		}

		delta := -original.DeltaMinorUnits
		if delta < 0 {
			err = balance.ValidateDebit(-delta)
		} else {
			err = balance.ValidateCredit(delta)
		}
		if err != nil {
			return err
		}

		originalRef := *original.ExternalRef
		rollbackRef := domain.LegacyRollbackRef(originalRef)
		originalID := original.ID
		entry = &domain.LedgerEntry{
			PlayerID:        original.PlayerID,
			BrandID:         original.BrandID,
			DeltaMinorUnits: delta,
			Reason:          domain.ReasonRollback,
			RoundID:         original.RoundID,
			ExternalRef:     &rollbackRef,
			GameCode:        original.GameCode,
			Provider:        original.Provider,
			RollbackOf:      &originalID,
			BalanceBefore:   balance.BalanceMinorUnits,
			BalanceAfter:    balance.BalanceMinorUnits + delta,
			ActorID:         actor.ID,
			ActorRole:       actor.Role,
			PayloadHash:     domain.RollbackFingerprint(originalRef),
			CreatedAt:       nowUTC(),
		}

		return uc.apply(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &LegacyResult{Entry: entry, Balance: entry.BalanceAfter}, nil
}

// apply writes the entry, the new balance, the audit record and the outbox
// event inside tx.
func (uc *LegacyWalletUseCase) apply(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error {
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	if err := uc.balanceRepo.UpdateBalance(ctx, tx, entry.PlayerID, entry.BalanceAfter, entry.CreatedAt); err != nil {
		return err
	}

	return uc.deps.record(ctx, tx,
		domain.NewLegacyAuditRecord(uc.deps.IDGen.Generate(), entry),
		domain.NewLedgerEntryEvent(uc.deps.IDGen.Generate(), entry),
	)
}

// replay answers a posting whose reference was already used.
func (uc *LegacyWalletUseCase) replay(ctx context.Context, posting domain.LegacyPosting, fingerprint string) (*LegacyResult, error) {
	var cached domain.LedgerEntry
	if stored, ok := uc.deps.Guard.Recall(ctx, domain.LedgerLegacy, posting.ExternalRef, &cached); ok {
		return uc.admit(&cached, posting, stored, fingerprint, "cache")
	}

	entry, err := uc.entryRepo.GetByExternalRef(ctx, posting.ExternalRef)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return uc.admit(entry, posting, entry.PayloadHash, fingerprint, "store")
}

func (uc *LegacyWalletUseCase) replayCommitted(ctx context.Context, posting domain.LegacyPosting, fingerprint string) (*LegacyResult, error) {
	entry, err := uc.entryRepo.GetByExternalRef(ctx, posting.ExternalRef)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: reference %s is being processed", domain.ErrContention, posting.ExternalRef)
	}
	if err != nil {
		return nil, err
	}

	return uc.admit(entry, posting, entry.PayloadHash, fingerprint, "race")
}

func (uc *LegacyWalletUseCase) admit(entry *domain.LedgerEntry, posting domain.LegacyPosting, stored, fingerprint, source string) (*LegacyResult, error) {
	// never hand one player's outcome to a request about another
	if entry.PlayerID != posting.PlayerID {
		return nil, domain.ErrIdempotencyKeyReused
	}

	if err := uc.deps.Guard.Admit(domain.LedgerLegacy, posting.ExternalRef, stored, fingerprint, source); err != nil {
		return nil, err
	}

	return &LegacyResult{Entry: entry, Balance: entry.BalanceAfter, Replayed: true}, nil
}
