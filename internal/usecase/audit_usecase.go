package usecase

import (
	"context"
	"fmt"

	"github.com/iho/casinowallet/internal/domain"
)

// AuditUseCase exposes the financial audit trail.
type AuditUseCase struct {
	auditRepo AuditRepository
	scope     *ScopeResolver
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditRepo AuditRepository, scope *ScopeResolver) *AuditUseCase {
	return &AuditUseCase{
		auditRepo: auditRepo,
		scope:     scope,
	}
}

// List returns audit records visible to the actor, newest first.
func (uc *AuditUseCase) List(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	scope, err := uc.scope.ResolveScope(ctx, actor, requested)
	if err != nil {
		return nil, err
	}

	principal, err := uc.scope.ScopePrincipalFilter(ctx, actor, scope, filter.Principal)
	if err != nil {
		return nil, err
	}

	if filter.Ledger != "" && filter.Ledger != domain.LedgerLegacy && filter.Ledger != domain.LedgerUnified {
		return nil, fmt.Errorf("%w: unknown ledger %q", domain.ErrValidation, filter.Ledger)
	}
	if err := domain.ValidateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	filter.BrandID = scope.BrandID
	filter.Principal = principal
	filter.Limit, filter.Offset = domain.ClampPagination(filter.Limit, filter.Offset)

	return uc.auditRepo.List(ctx, filter)
}
