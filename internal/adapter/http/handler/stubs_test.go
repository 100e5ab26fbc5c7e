package handler

import (
	"context"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

type legacyServiceStub struct {
	balanceFn  func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, playerID string) (*domain.LegacyBalance, error)
	debitFn    func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error)
	creditFn   func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error)
	rollbackFn func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, originalRef string) (*usecase.LegacyResult, error)
}

func (s *legacyServiceStub) GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, playerID string) (*domain.LegacyBalance, error) {
	return s.balanceFn(ctx, actor, requested, playerID)
}

func (s *legacyServiceStub) Debit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error) {
	return s.debitFn(ctx, actor, requested, posting)
}

func (s *legacyServiceStub) Credit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error) {
	return s.creditFn(ctx, actor, requested, posting)
}

func (s *legacyServiceStub) Rollback(ctx context.Context, actor domain.Actor, requested domain.BrandScope, originalRef string) (*usecase.LegacyResult, error) {
	return s.rollbackFn(ctx, actor, requested, originalRef)
}

type transactionServiceStub struct {
	transferFn func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (*usecase.TransferResult, error)
	rollbackFn func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, externalRef string) (*usecase.TransferResult, error)
	balanceFn  func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, ref domain.PrincipalRef) (*domain.Principal, error)
	listFn     func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error)
}

func (s *transactionServiceStub) Transfer(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (*usecase.TransferResult, error) {
	return s.transferFn(ctx, actor, requested, req)
}

func (s *transactionServiceStub) RollbackByReference(ctx context.Context, actor domain.Actor, requested domain.BrandScope, externalRef string) (*usecase.TransferResult, error) {
	return s.rollbackFn(ctx, actor, requested, externalRef)
}

func (s *transactionServiceStub) GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, ref domain.PrincipalRef) (*domain.Principal, error) {
	return s.balanceFn(ctx, actor, requested, ref)
}

func (s *transactionServiceStub) GetTransactions(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error) {
	return s.listFn(ctx, actor, requested, filter)
}

type principalServiceStub struct {
	createFn func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, input usecase.CreatePrincipalInput) (*domain.Principal, error)
}

func (s *principalServiceStub) Create(ctx context.Context, actor domain.Actor, requested domain.BrandScope, input usecase.CreatePrincipalInput) (*domain.Principal, error) {
	return s.createFn(ctx, actor, requested, input)
}

type auditServiceStub struct {
	listFn func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.AuditFilter) ([]*domain.AuditRecord, error)
}

func (s *auditServiceStub) List(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	return s.listFn(ctx, actor, requested, filter)
}

type reconciliationServiceStub struct {
	runFn func(ctx context.Context, actor domain.Actor) (*domain.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) Run(ctx context.Context, actor domain.Actor) (*domain.ReconciliationReport, error) {
	return s.runFn(ctx, actor)
}
