package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iho/casinowallet/internal/domain"
)

// TransferResult is the outcome of a unified transfer or rollback.
type TransferResult struct {
	Transaction *domain.WalletTransaction
	Replayed    bool
}

// TransactionUseCase is the unified decimal ledger.
type TransactionUseCase struct {
	deps          *LedgerDeps
	principalRepo PrincipalRepository
	txnRepo       WalletTransactionRepository
	overdraftRepo OverdraftRepository
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	deps *LedgerDeps,
	principalRepo PrincipalRepository,
	txnRepo WalletTransactionRepository,
	overdraftRepo OverdraftRepository,
) *TransactionUseCase {
	return &TransactionUseCase{
		deps:          deps,
		principalRepo: principalRepo,
		txnRepo:       txnRepo,
		overdraftRepo: overdraftRepo,
	}
}

// Transfer moves funds between two principals of one brand. A nil From
// mints and a nil To withdraws.
func (uc *TransactionUseCase) Transfer(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (result *TransferResult, err error) {
	start := time.Now()
	defer func() { observe(uc.deps.Metrics, "transfer", start, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	txType := req.EffectiveType()
	brandID, err := uc.deps.Scope.AuthorizeMovement(ctx, actor, scope, req.From, req.To, txType)
	if err != nil {
		return nil, err
	}

	fingerprint := req.Fingerprint()
	if result, err := uc.replay(ctx, scope, req.IdempotencyKey, fingerprint); result != nil || err != nil {
		return result, err
	}

	txn := &domain.WalletTransaction{
		BrandID:        brandID,
		From:           req.From,
		To:             req.To,
		Amount:         req.Amount,
		Type:           txType,
		Description:    req.Description,
		CreatedByID:    actor.ID,
		CreatedByRole:  actor.Role,
		IdempotencyKey: req.IdempotencyKey,
		PayloadHash:    fingerprint,
	}

	err = uc.deps.retry(ctx, func() error {
		return uc.deps.atomically(ctx, func(ctx context.Context, tx Transaction) error {
			return uc.post(ctx, tx, txn)
		})
	})
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		return uc.replayCommitted(ctx, scope, req.IdempotencyKey, fingerprint)
	}
	if err != nil {
		return nil, err
	}

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.WalletTransactions.WithLabelValues(string(txType)).Inc()
		uc.deps.Metrics.TransferAmount.Observe(req.Amount.InexactFloat64())
	}
	uc.deps.countAudit(domain.LedgerUnified)
	uc.deps.Guard.Remember(ctx, domain.LedgerUnified, txn.IdempotencyKey, fingerprint, txn)

	return &TransferResult{Transaction: txn}, nil
}

// RollbackByReference reverses the transaction recorded under externalRef by
// posting a ROLLBACK with the principals swapped.
func (uc *TransactionUseCase) RollbackByReference(ctx context.Context, actor domain.Actor, requested domain.BrandScope, externalRef string) (result *TransferResult, err error) {
	start := time.Now()
	defer func() { observe(uc.deps.Metrics, "rollback", start, err) }()

	if err := domain.ValidateIdempotencyKey(externalRef); err != nil {
		return nil, err
	}

	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	original, err := uc.txnRepo.GetByIdempotencyKey(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(original.BrandID) {
		return nil, fmt.Errorf("%w: transaction belongs to another brand", domain.ErrTenantIsolation)
	}
	if original.Type == domain.TransactionRollback {
		return nil, domain.ErrRollbackOfRollback
	}

	if _, err := uc.deps.Scope.AuthorizeMovement(ctx, actor, scope, original.To, original.From, domain.TransactionRollback); err != nil {
		return nil, err
	}

	originalID := original.ID
	key := domain.RollbackKeyPrefix + externalRef
	txn := &domain.WalletTransaction{
		BrandID:               original.BrandID,
		From:                  original.To,
		To:                    original.From,
		Amount:                original.Amount,
		Type:                  domain.TransactionRollback,
		Description:           "rollback of " + externalRef,
		CreatedByID:           actor.ID,
		CreatedByRole:         actor.Role,
		IdempotencyKey:        key,
		PayloadHash:           domain.RollbackFingerprint(externalRef),
		ReversesTransactionID: &originalID,
	}

	err = uc.deps.retry(ctx, func() error {
		return uc.deps.atomically(ctx, func(ctx context.Context, tx Transaction) error {
			prior, err := uc.txnRepo.GetReversal(ctx, tx, originalID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if prior != nil {
				return domain.ErrAlreadyRolledBack
			}
			return uc.post(ctx, tx, txn)
		})
	})
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		return nil, domain.ErrAlreadyRolledBack
	}
	if err != nil {
		return nil, err
	}

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.WalletRollbacks.Inc()
		uc.deps.Metrics.WalletTransactions.WithLabelValues(string(domain.TransactionRollback)).Inc()
	}
	uc.deps.countAudit(domain.LedgerUnified)

	return &TransferResult{Transaction: txn}, nil
}

// GetBalance returns a principal with its committed unified balance.
func (uc *TransactionUseCase) GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, ref domain.PrincipalRef) (*domain.Principal, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	return uc.deps.Scope.AuthorizePrincipal(ctx, actor, scope, ref)
}

// GetTransactions lists committed transactions visible to the actor.
func (uc *TransactionUseCase) GetTransactions(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error) {
	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	principal, err := uc.deps.Scope.ScopePrincipalFilter(ctx, actor, scope, filter.Principal)
	if err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransaction, filter.Type)
	}
	if err := domain.ValidateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	filter.BrandID = scope.BrandID
	filter.Principal = principal
	filter.Limit, filter.Offset = domain.ClampPagination(filter.Limit, filter.Offset)

	return uc.txnRepo.List(ctx, filter)
}

// post locks both sides in key order, applies the movement and records it.
func (uc *TransactionUseCase) post(ctx context.Context, tx Transaction, txn *domain.WalletTransaction) error {
	refs := make([]domain.PrincipalRef, 0, 2)
	for _, ref := range []*domain.PrincipalRef{txn.From, txn.To} {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })

	locked, err := uc.principalRepo.GetForUpdate(ctx, tx, refs)
	if err != nil {
		return err
	}

	ts := nowUTC()
	txn.ID = uc.deps.IDGen.Generate()
	txn.CreatedAt = ts
	txn.PreviousBalanceFrom, txn.NewBalanceFrom = nil, nil
	txn.PreviousBalanceTo, txn.NewBalanceTo = nil, nil

	if txn.From != nil {
		from, ok := locked[txn.From.Key()]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, txn.From)
		}

		allowNegative := false
		if from.Balance.LessThan(txn.Amount) && uc.overdraftRepo != nil {
			allowNegative, err = uc.overdraftRepo.AllowsNegative(ctx, tx, txn.BrandID, *txn.From, txn.To)
			if err != nil {
				return err
			}
		}
		if err := from.ValidateDebit(txn.Amount, allowNegative); err != nil {
			return err
		}

		prev, next := from.Balance, from.ApplyDebit(txn.Amount)
		txn.PreviousBalanceFrom, txn.NewBalanceFrom = &prev, &next
	}

	if txn.To != nil {
		to, ok := locked[txn.To.Key()]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, txn.To)
		}

		prev, next := to.Balance, to.ApplyCredit(txn.Amount)
		txn.PreviousBalanceTo, txn.NewBalanceTo = &prev, &next
	}

	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		return err
	}

	if txn.From != nil {
		if err := uc.principalRepo.UpdateBalance(ctx, tx, *txn.From, *txn.NewBalanceFrom, ts); err != nil {
			return err
		}
	}
	if txn.To != nil {
		if err := uc.principalRepo.UpdateBalance(ctx, tx, *txn.To, *txn.NewBalanceTo, ts); err != nil {
			return err
		}
	}

	return uc.deps.record(ctx, tx,
		domain.NewUnifiedAuditRecord(uc.deps.IDGen.Generate(), txn),
		domain.NewWalletTransactionEvent(uc.deps.IDGen.Generate(), txn),
	)
}

func (uc *TransactionUseCase) replay(ctx context.Context, scope domain.Scope, key, fingerprint string) (*TransferResult, error) {
	var cached domain.WalletTransaction
	if stored, ok := uc.deps.Guard.Recall(ctx, domain.LedgerUnified, key, &cached); ok {
		return uc.admit(scope, &cached, stored, fingerprint, "cache")
	}

	txn, err := uc.txnRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return uc.admit(scope, txn, txn.PayloadHash, fingerprint, "store")
}

func (uc *TransactionUseCase) replayCommitted(ctx context.Context, scope domain.Scope, key, fingerprint string) (*TransferResult, error) {
	txn, err := uc.txnRepo.GetByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: key %s is being processed", domain.ErrContention, key)
	}
	if err != nil {
		return nil, err
	}

	return uc.admit(scope, txn, txn.PayloadHash, fingerprint, "race")
}

func (uc *TransactionUseCase) admit(scope domain.Scope, txn *domain.WalletTransaction, stored, fingerprint, source string) (*TransferResult, error) {
	if !scope.Allows(txn.BrandID) {
		return nil, domain.ErrIdempotencyKeyReused
	}

	if err := uc.deps.Guard.Admit(domain.LedgerUnified, txn.IdempotencyKey, stored, fingerprint, source); err != nil {
		return nil, err
	}

	return &TransferResult{Transaction: txn, Replayed: true}, nil
}
