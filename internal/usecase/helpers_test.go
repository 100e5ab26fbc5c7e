package usecase_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
	"github.com/iho/casinowallet/internal/usecase"
	"github.com/iho/casinowallet/internal/usecase/mocks"
)

const (
	brandA = "brand-a"
	brandB = "brand-b"
)

var (
	superAdmin = domain.Actor{ID: "root", Role: domain.RoleSuperAdmin}
	operatorA  = domain.Actor{ID: "op-a", Role: domain.RoleOperatorAdmin, BrandID: brandA}
	operatorB  = domain.Actor{ID: "op-b", Role: domain.RoleOperatorAdmin, BrandID: brandB}
	cashier1   = domain.Actor{ID: "c1", Role: domain.RoleCashier, BrandID: brandA}
	providerA  = domain.Actor{ID: "slots", Role: domain.RoleGameProvider, BrandID: brandA}

	scopeA = domain.BrandScope{BrandID: brandA}
	scopeB = domain.BrandScope{BrandID: brandB}
	global = domain.BrandScope{Global: true}
)

func player(id string) domain.PrincipalRef {
	return domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: id}
}

func backoffice(id string) domain.PrincipalRef {
	return domain.PrincipalRef{Type: domain.PrincipalBackoffice, ID: id}
}

func ptr[T any](v T) *T {
	return &v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type testEnv struct {
	store   *mocks.Store
	cache   *mocks.MemoryIdempotencyStore
	retrier *mocks.Retrier
	metrics *metrics.Metrics
	deps    *usecase.LedgerDeps

	legacy       *usecase.LegacyWalletUseCase
	transactions *usecase.TransactionUseCase
	principals   *usecase.PrincipalUseCase
	audit        *usecase.AuditUseCase
}

// newTestEnv builds every use case over one in-memory store with two active
// brands. In brand A cashier c1 manages c1a, which manages p2; c1 also
// manages p1 directly. Cashier c2 manages p3. Player p4 belongs to brand B.
func newTestEnv(t *testing.T, policy usecase.MismatchPolicy) *testEnv {
	t.Helper()

	store := mocks.NewStore()
	store.AddBrand(domain.Brand{ID: brandA, Name: "Alpha", Hostname: "alpha.test", IsActive: true})
	store.AddBrand(domain.Brand{ID: brandB, Name: "Beta", Hostname: "beta.test", IsActive: true})
	store.AddBrand(domain.Brand{ID: "brand-off", Name: "Closed", Hostname: "closed.test"})

	for _, p := range []domain.Principal{
		{Ref: backoffice("op-a"), BrandID: brandA, Username: "op-a", Role: domain.RoleOperatorAdmin, IsActive: true},
		{Ref: backoffice("c1"), BrandID: brandA, Username: "c1", Role: domain.RoleCashier, IsActive: true},
		{Ref: backoffice("c1a"), BrandID: brandA, Username: "c1a", Role: domain.RoleCashier, ParentCashierID: ptr("c1"), IsActive: true},
		{Ref: backoffice("c2"), BrandID: brandA, Username: "c2", Role: domain.RoleCashier, IsActive: true},
		{Ref: player("p1"), BrandID: brandA, Username: "p1", ParentCashierID: ptr("c1"), IsActive: true},
		{Ref: player("p2"), BrandID: brandA, Username: "p2", ParentCashierID: ptr("c1a"), IsActive: true},
		{Ref: player("p3"), BrandID: brandA, Username: "p3", ParentCashierID: ptr("c2"), IsActive: true},
		{Ref: player("p4"), BrandID: brandB, Username: "p4", IsActive: true},
	} {
		store.AddPrincipal(p)
	}

	cache := mocks.NewMemoryIdempotencyStore()
	retrier := &mocks.Retrier{MaxAttempts: 3}
	m := metrics.New(prometheus.NewRegistry())
	scope := usecase.NewScopeResolver(store.Brands(), store.Principals())

	deps := &usecase.LedgerDeps{
		TxManager: store,
		Retrier:   retrier,
		AuditRepo: store.Audit(),
		Outbox:    store.Outbox(),
		IDGen:     mocks.NewSequentialIDGenerator(),
		Scope:     scope,
		Guard: usecase.NewIdempotencyGuard(usecase.GuardConfig{
			Cache:   cache,
			Policy:  policy,
			Logger:  zerolog.Nop(),
			Metrics: m,
		}),
		Metrics: m,
		Logger:  zerolog.Nop(),
	}

	return &testEnv{
		store:        store,
		cache:        cache,
		retrier:      retrier,
		metrics:      m,
		deps:         deps,
		legacy:       usecase.NewLegacyWalletUseCase(deps, store.LegacyBalances(), store.Entries()),
		transactions: usecase.NewTransactionUseCase(deps, store.Principals(), store.Transactions(), store.Overdrafts()),
		principals:   usecase.NewPrincipalUseCase(deps, store.Principals(), store.LegacyBalances(), store.Entries(), store.Transactions()),
		audit:        usecase.NewAuditUseCase(store.Audit(), scope),
	}
}

// mint credits ref through a SUPER_ADMIN mint so balances stay reconcilable.
func (e *testEnv) mint(t *testing.T, ref domain.PrincipalRef, amount string) {
	t.Helper()

	_, err := e.transactions.Transfer(t.Context(), superAdmin, global, domain.TransferRequest{
		To:             &ref,
		Amount:         dec(amount),
		IdempotencyKey: "mint:" + ref.Key() + ":" + amount,
	})
	if err != nil {
		t.Fatalf("mint %s to %s: %v", amount, ref, err)
	}
}

// grant credits a legacy wallet through an operator ADMIN_GRANT.
func (e *testEnv) grant(t *testing.T, playerID string, amount int64, ref string) {
	t.Helper()

	_, err := e.legacy.Credit(t.Context(), operatorA, scopeA, domain.LegacyPosting{
		PlayerID:         playerID,
		AmountMinorUnits: amount,
		Reason:           domain.ReasonAdminGrant,
		ExternalRef:      ref,
	})
	if err != nil {
		t.Fatalf("grant %d to %s: %v", amount, playerID, err)
	}
}
