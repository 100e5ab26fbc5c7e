package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/casinowallet/internal/domain"
)

// ScopeResolver decides which brand an operation runs in and which
// counterparties an actor may touch.
type ScopeResolver struct {
	brands     BrandRepository
	principals PrincipalRepository
}

// NewScopeResolver creates a new ScopeResolver.
func NewScopeResolver(brands BrandRepository, principals PrincipalRepository) *ScopeResolver {
	return &ScopeResolver{
		brands:     brands,
		principals: principals,
	}
}

// ResolveScope turns the requested brand context into an effective scope.
// It fails closed: no brand and no global SUPER_ADMIN request is Forbidden.
func (r *ScopeResolver) ResolveScope(ctx context.Context, actor domain.Actor, requested domain.BrandScope) (domain.Scope, error) {
	if err := actor.Validate(); err != nil {
		return domain.Scope{}, err
	}

	if requested.BrandID == "" {
		if requested.Global && actor.Role.CanActGlobally() {
			return domain.Scope{Global: true}, nil
		}
		return domain.Scope{}, domain.ErrBrandContextRequired
	}

	if !actor.Role.CanActGlobally() && actor.BrandID != requested.BrandID {
		return domain.Scope{}, domain.ErrBrandMismatch
	}

	brand, err := r.brands.GetByID(ctx, requested.BrandID)
	if err != nil {
		return domain.Scope{}, err
	}
	if !brand.IsActive {
		return domain.Scope{}, domain.ErrBrandInactive
	}

	return domain.Scope{BrandID: brand.ID}, nil
}

// AuthorizeMovement checks that actor may move funds between from and to
// with the given type, and returns the single brand both sides belong to.
func (r *ScopeResolver) AuthorizeMovement(
	ctx context.Context,
	actor domain.Actor,
	scope domain.Scope,
	from, to *domain.PrincipalRef,
	txType domain.TransactionType,
) (string, error) {
	if from == nil && !actor.Role.CanMint() {
		return "", domain.ErrMintForbidden
	}
	if to == nil && !actor.Role.CanWithdraw() {
		return "", domain.ErrWithdrawalForbidden
	}
	if !actor.Role.CanCreateTransaction(txType) {
		return "", fmt.Errorf("%w: %s may not create %s", domain.ErrTransactionTypeForbidden, actor.Role, txType)
	}

	brandID := scope.BrandID
	for _, ref := range []*domain.PrincipalRef{from, to} {
		if ref == nil {
			continue
		}

		p, err := r.principals.Get(ctx, *ref)
		if err != nil {
			return "", err
		}

		if brandID == "" {
			brandID = p.BrandID
		}
		if p.BrandID != brandID {
			return "", fmt.Errorf("%w: %s belongs to another brand", domain.ErrTenantIsolation, ref)
		}

		if err := r.checkReach(ctx, actor, p); err != nil {
			return "", err
		}
	}

	return brandID, nil
}

// AuthorizePrincipal checks that actor may read or post against ref in scope.
func (r *ScopeResolver) AuthorizePrincipal(ctx context.Context, actor domain.Actor, scope domain.Scope, ref domain.PrincipalRef) (*domain.Principal, error) {
	p, err := r.principals.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !scope.Allows(p.BrandID) {
		return nil, fmt.Errorf("%w: %s belongs to another brand", domain.ErrTenantIsolation, ref)
	}

	if err := r.checkReach(ctx, actor, p); err != nil {
		return nil, err
	}

	return p, nil
}

// AuthorizeLedgerPosting checks a legacy debit or credit.
func (r *ScopeResolver) AuthorizeLedgerPosting(ctx context.Context, actor domain.Actor, scope domain.Scope, playerID string, reason domain.LedgerReason) (*domain.Principal, error) {
	if !actor.Role.CanPostLedger(reason) {
		return nil, fmt.Errorf("%w: %s may not post %s", domain.ErrTransactionTypeForbidden, actor.Role, reason)
	}
	return r.AuthorizePrincipal(ctx, actor, scope, domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: playerID})
}

// ScopePrincipalFilter narrows a history query to what actor may see.
// Cashiers without an explicit principal see only their own records.
func (r *ScopeResolver) ScopePrincipalFilter(ctx context.Context, actor domain.Actor, scope domain.Scope, requested *domain.PrincipalRef) (*domain.PrincipalRef, error) {
	if requested != nil {
		if err := requested.Validate(); err != nil {
			return nil, err
		}
		if _, err := r.AuthorizePrincipal(ctx, actor, scope, *requested); err != nil {
			return nil, err
		}
		return requested, nil
	}

	if actor.Role == domain.RoleCashier {
		self, _ := actor.Principal()
		return &self, nil
	}

	return nil, nil
}

// InSubtree reports whether p is cashierID itself or reachable from it
// through the parent-cashier chain.
func (r *ScopeResolver) InSubtree(ctx context.Context, cashierID string, p *domain.Principal) (bool, error) {
	if p.Ref.Type == domain.PrincipalBackoffice && p.Ref.ID == cashierID {
		return true, nil
	}

	found := false
	err := r.walkParents(ctx, p.ParentCashierID, func(parentID string) bool {
		found = parentID == cashierID
		return found
	})

	return found, err
}

// walkParents visits every ancestor cashier id starting at first until visit
// returns true. It fails on a revisited node or when the chain is too deep.
func (r *ScopeResolver) walkParents(ctx context.Context, first *string, visit func(string) bool) error {
	seen := make(map[string]bool)

	for cur, depth := first, 0; cur != nil; depth++ {
		if depth >= MaxHierarchyDepth {
			return domain.ErrHierarchyTooDeep
		}
		if seen[*cur] {
			return domain.ErrHierarchyCycle
		}
		seen[*cur] = true

		if visit(*cur) {
			return nil
		}

		parent, err := r.principals.Get(ctx, domain.PrincipalRef{Type: domain.PrincipalBackoffice, ID: *cur})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		cur = parent.ParentCashierID
	}

	return nil
}

// checkReach enforces the cashier hierarchy rule. Other roles reach every
// principal of their brand.
func (r *ScopeResolver) checkReach(ctx context.Context, actor domain.Actor, p *domain.Principal) error {
	if actor.Role != domain.RoleCashier {
		return nil
	}

	ok, err := r.InSubtree(ctx, actor.ID, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOutsideHierarchy, p.Ref)
	}

	return nil
}
