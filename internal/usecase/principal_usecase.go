package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
)

// CreatePrincipalInput describes a new player or backoffice user.
type CreatePrincipalInput struct {
	Type            domain.PrincipalType
	ID              string // generated when empty
	Username        string
	Role            domain.Role // backoffice users only
	ParentCashierID *string
	InitialBalance  decimal.Decimal // unified
	InitialLegacy   int64           // players only, minor units
}

// PrincipalUseCase registers principals and their balance rows.
type PrincipalUseCase struct {
	deps          *LedgerDeps
	principalRepo PrincipalRepository
	balanceRepo   LegacyBalanceRepository
	entryRepo     LedgerEntryRepository
	txnRepo       WalletTransactionRepository
}

// NewPrincipalUseCase creates a new PrincipalUseCase.
func NewPrincipalUseCase(
	deps *LedgerDeps,
	principalRepo PrincipalRepository,
	balanceRepo LegacyBalanceRepository,
	entryRepo LedgerEntryRepository,
	txnRepo WalletTransactionRepository,
) *PrincipalUseCase {
	return &PrincipalUseCase{
		deps:          deps,
		principalRepo: principalRepo,
		balanceRepo:   balanceRepo,
		entryRepo:     entryRepo,
		txnRepo:       txnRepo,
	}
}

// Create registers a principal in the resolved brand. Opening balances are
// written as ledger rows so that balances stay reconcilable.
func (uc *PrincipalUseCase) Create(ctx context.Context, actor domain.Actor, requested domain.BrandScope, input CreatePrincipalInput) (*domain.Principal, error) {
	scope, err := uc.deps.Scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}
	if scope.BrandID == "" {
		return nil, domain.ErrBrandContextRequired
	}

	if err := uc.validate(actor, input); err != nil {
		return nil, err
	}

	if input.ID == "" {
		input.ID = uc.deps.IDGen.Generate()
	}
	ref := domain.PrincipalRef{Type: input.Type, ID: input.ID}

	if err := uc.checkParent(ctx, actor, scope.BrandID, ref, input.ParentCashierID); err != nil {
		return nil, err
	}

	ts := nowUTC()
	principal := &domain.Principal{
		Ref:             ref,
		BrandID:         scope.BrandID,
		Username:        input.Username,
		Role:            input.Role.Normalize(),
		ParentCashierID: input.ParentCashierID,
		Balance:         input.InitialBalance,
		IsActive:        true,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}

	err = uc.deps.atomically(ctx, func(ctx context.Context, tx Transaction) error {
		if err := uc.principalRepo.Create(ctx, tx, principal); err != nil {
			return err
		}

		if ref.Type == domain.PrincipalPlayer {
			if err := uc.openLegacy(ctx, tx, actor, principal, input.InitialLegacy); err != nil {
				return err
			}
		}

		if input.InitialBalance.IsPositive() {
			if err := uc.openUnified(ctx, tx, actor, principal); err != nil {
				return err
			}
		}

		if uc.deps.Outbox != nil {
			return uc.deps.Outbox.Create(ctx, tx, domain.NewPrincipalCreatedEvent(uc.deps.IDGen.Generate(), principal))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.deps.Metrics != nil {
		uc.deps.Metrics.PrincipalsCreated.WithLabelValues(string(ref.Type)).Inc()
	}

	return principal, nil
}

func (uc *PrincipalUseCase) validate(actor domain.Actor, input CreatePrincipalInput) error {
	if !input.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidPrincipal, input.Type)
	}
	if strings.TrimSpace(input.Username) == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	switch input.Type {
	case domain.PrincipalPlayer:
		if input.Role != "" {
			return fmt.Errorf("%w: players carry no role", domain.ErrInvalidRole)
		}
	case domain.PrincipalBackoffice:
		if !input.Role.IsBackoffice() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidRole, input.Role)
		}
		if input.InitialLegacy != 0 {
			return fmt.Errorf("%w: backoffice users have no legacy wallet", domain.ErrValidation)
		}
	}

	// who may create whom
	switch actor.Role.Normalize() {
	case domain.RoleSuperAdmin:
	case domain.RoleOperatorAdmin:
		if input.Role == domain.RoleSuperAdmin {
			return fmt.Errorf("%w: cannot create SUPER_ADMIN", domain.ErrForbidden)
		}
	case domain.RoleCashier:
		if input.Type == domain.PrincipalBackoffice && input.Role != domain.RoleCashier {
			return fmt.Errorf("%w: cashiers may only create players and cashiers", domain.ErrForbidden)
		}
		if input.ParentCashierID == nil {
			return fmt.Errorf("%w: cashiers must create principals under their hierarchy", domain.ErrOutsideHierarchy)
		}
	default:
		return fmt.Errorf("%w: %s may not create principals", domain.ErrForbidden, actor.Role)
	}

	if input.InitialBalance.IsNegative() || input.InitialLegacy < 0 {
		return domain.ErrInvalidAmount
	}
	if (input.InitialBalance.IsPositive() || input.InitialLegacy > 0) && !actor.Role.CanMint() {
		return domain.ErrMintForbidden
	}
	if input.InitialBalance.IsPositive() {
		if err := domain.ValidateAmount(input.InitialBalance); err != nil {
			return err
		}
	}
	if input.InitialLegacy > 0 {
		if err := domain.ValidateMinorUnits(input.InitialLegacy); err != nil {
			return err
		}
	}

	return nil
}

// checkParent verifies the parent cashier and walks its chain so that the
// new principal cannot close a cycle.
func (uc *PrincipalUseCase) checkParent(ctx context.Context, actor domain.Actor, brandID string, ref domain.PrincipalRef, parentID *string) error {
	if parentID == nil {
		return nil
	}

	parent, err := uc.principalRepo.Get(ctx, domain.PrincipalRef{Type: domain.PrincipalBackoffice, ID: *parentID})
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: parent cashier %s not found", domain.ErrInvalidParent, *parentID)
	}
	if err != nil {
		return err
	}
	if !parent.IsCashier() || parent.BrandID != brandID {
		return domain.ErrInvalidParent
	}

	cyclic := false
	err = uc.deps.Scope.walkParents(ctx, parentID, func(id string) bool {
		cyclic = ref.Type == domain.PrincipalBackoffice && id == ref.ID
		return cyclic
	})
	if err != nil {
		return err
	}
	if cyclic {
		return domain.ErrHierarchyCycle
	}

	if actor.Role == domain.RoleCashier {
		ok, err := uc.deps.Scope.InSubtree(ctx, actor.ID, parent)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOutsideHierarchy
		}
	}

	return nil
}

func (uc *PrincipalUseCase) openLegacy(ctx context.Context, tx Transaction, actor domain.Actor, player *domain.Principal, initial int64) error {
	balance := &domain.LegacyBalance{
		PlayerID:          player.Ref.ID,
		BrandID:           player.BrandID,
		BalanceMinorUnits: initial,
		UpdatedAt:         player.CreatedAt,
	}
	if err := uc.balanceRepo.Create(ctx, tx, balance); err != nil {
		return err
	}
	if initial == 0 {
		return nil
	}

	ref := domain.OpeningKeyPrefix + player.Ref.Key()
	entry := &domain.LedgerEntry{
		PlayerID:        player.Ref.ID,
		BrandID:         player.BrandID,
		DeltaMinorUnits: initial,
		Reason:          domain.ReasonAdjust,
		ExternalRef:     &ref,
		BalanceBefore:   0,
		BalanceAfter:    initial,
		ActorID:         actor.ID,
		ActorRole:       actor.Role,
		CreatedAt:       player.CreatedAt,
	}
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	return uc.deps.record(ctx, tx,
		domain.NewLegacyAuditRecord(uc.deps.IDGen.Generate(), entry),
		domain.NewLedgerEntryEvent(uc.deps.IDGen.Generate(), entry),
	)
}

func (uc *PrincipalUseCase) openUnified(ctx context.Context, tx Transaction, actor domain.Actor, p *domain.Principal) error {
	to := p.Ref
	prev := decimal.Zero
	next := p.Balance

	txn := &domain.WalletTransaction{
		ID:                uc.deps.IDGen.Generate(),
		BrandID:           p.BrandID,
		To:                &to,
		Amount:            p.Balance,
		PreviousBalanceTo: &prev,
		NewBalanceTo:      &next,
		Type:              domain.TransactionAdjustment,
		Description:       "opening balance",
		CreatedByID:       actor.ID,
		CreatedByRole:     actor.Role,
		IdempotencyKey:    domain.OpeningKeyPrefix + p.Ref.Key(),
		CreatedAt:         p.CreatedAt,
	}
	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		return err
	}

	return uc.deps.record(ctx, tx,
		domain.NewUnifiedAuditRecord(uc.deps.IDGen.Generate(), txn),
		domain.NewWalletTransactionEvent(uc.deps.IDGen.Generate(), txn),
	)
}
