package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
	"github.com/iho/casinowallet/internal/usecase/mocks"
)

func TestScopeResolver_ResolveScope(t *testing.T) {
	tests := []struct {
		name      string
		actor     domain.Actor
		requested domain.BrandScope
		brand     *domain.Brand
		brandErr  error
		want      domain.Scope
		wantErr   error
	}{
		{
			name:      "super admin global",
			actor:     superAdmin,
			requested: global,
			want:      domain.Scope{Global: true},
		},
		{
			name:      "super admin in brand",
			actor:     superAdmin,
			requested: scopeA,
			brand:     &domain.Brand{ID: brandA, IsActive: true},
			want:      domain.Scope{BrandID: brandA},
		},
		{
			name:      "operator in own brand",
			actor:     operatorA,
			requested: scopeA,
			brand:     &domain.Brand{ID: brandA, IsActive: true},
			want:      domain.Scope{BrandID: brandA},
		},
		{
			name:      "no brand fails closed",
			actor:     superAdmin,
			requested: domain.BrandScope{},
			wantErr:   domain.ErrBrandContextRequired,
		},
		{
			name:      "global is only for super admin",
			actor:     cashier1,
			requested: global,
			wantErr:   domain.ErrBrandContextRequired,
		},
		{
			name:      "other brand",
			actor:     operatorA,
			requested: scopeB,
			wantErr:   domain.ErrBrandMismatch,
		},
		{
			name:      "unknown brand",
			actor:     superAdmin,
			requested: domain.BrandScope{BrandID: "nope"},
			brandErr:  domain.ErrBrandNotFound,
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "inactive brand",
			actor:     operatorA,
			requested: scopeA,
			brand:     &domain.Brand{ID: brandA},
			wantErr:   domain.ErrBrandInactive,
		},
		{
			name:      "anonymous actor",
			actor:     domain.Actor{Role: domain.RoleOperatorAdmin, BrandID: brandA},
			requested: scopeA,
			wantErr:   domain.ErrUnauthenticated,
		},
		{
			name:      "brandless operator",
			actor:     domain.Actor{ID: "x", Role: domain.RoleOperatorAdmin},
			requested: scopeA,
			wantErr:   domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			brands := mocks.NewMockBrandRepository(ctrl)
			principals := mocks.NewMockPrincipalRepository(ctrl)

			if tt.brand != nil || tt.brandErr != nil {
				brands.EXPECT().GetByID(gomock.Any(), tt.requested.BrandID).Return(tt.brand, tt.brandErr)
			}

			r := usecase.NewScopeResolver(brands, principals)
			got, err := r.ResolveScope(context.Background(), tt.actor, tt.requested)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeResolver_CashierHierarchy(t *testing.T) {
	ctrl := gomock.NewController(t)
	brands := mocks.NewMockBrandRepository(ctrl)
	principals := mocks.NewMockPrincipalRepository(ctrl)

	chain := map[string]*domain.Principal{
		"backoffice:c1":  {Ref: backoffice("c1"), BrandID: brandA, Role: domain.RoleCashier},
		"backoffice:c1a": {Ref: backoffice("c1a"), BrandID: brandA, Role: domain.RoleCashier, ParentCashierID: ptr("c1")},
		"backoffice:c2":  {Ref: backoffice("c2"), BrandID: brandA, Role: domain.RoleCashier},
	}
	principals.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ref domain.PrincipalRef) (*domain.Principal, error) {
			if p, ok := chain[ref.Key()]; ok {
				return p, nil
			}
			return nil, domain.ErrPrincipalNotFound
		},
	).AnyTimes()

	r := usecase.NewScopeResolver(brands, principals)
	ctx := context.Background()

	deep := &domain.Principal{Ref: player("p2"), BrandID: brandA, ParentCashierID: ptr("c1a")}
	ok, err := r.InSubtree(ctx, "c1", deep)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.InSubtree(ctx, "c1a", deep)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.InSubtree(ctx, "c2", deep)
	require.NoError(t, err)
	assert.False(t, ok)

	self := chain["backoffice:c1"]
	ok, err = r.InSubtree(ctx, "c1", self)
	require.NoError(t, err)
	assert.True(t, ok)

	orphan := &domain.Principal{Ref: player("p9"), BrandID: brandA, ParentCashierID: ptr("gone")}
	ok, err = r.InSubtree(ctx, "c1", orphan)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScopeResolver_CyclicHierarchy(t *testing.T) {
	ctrl := gomock.NewController(t)
	principals := mocks.NewMockPrincipalRepository(ctrl)

	// x -> y -> x
	principals.EXPECT().Get(gomock.Any(), backoffice("x")).
		Return(&domain.Principal{Ref: backoffice("x"), Role: domain.RoleCashier, ParentCashierID: ptr("y")}, nil).AnyTimes()
	principals.EXPECT().Get(gomock.Any(), backoffice("y")).
		Return(&domain.Principal{Ref: backoffice("y"), Role: domain.RoleCashier, ParentCashierID: ptr("x")}, nil).AnyTimes()

	r := usecase.NewScopeResolver(mocks.NewMockBrandRepository(ctrl), principals)

	p := &domain.Principal{Ref: player("p"), ParentCashierID: ptr("x")}
	_, err := r.InSubtree(context.Background(), "c1", p)
	assert.ErrorIs(t, err, domain.ErrHierarchyCycle)
}

func TestScopeResolver_DeepHierarchy(t *testing.T) {
	ctrl := gomock.NewController(t)
	principals := mocks.NewMockPrincipalRepository(ctrl)

	principals.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ref domain.PrincipalRef) (*domain.Principal, error) {
			var n int
			_, _ = fmt.Sscanf(ref.ID, "c%d", &n)
			return &domain.Principal{Ref: ref, Role: domain.RoleCashier, ParentCashierID: ptr(fmt.Sprintf("c%d", n+1))}, nil
		},
	).AnyTimes()

	r := usecase.NewScopeResolver(mocks.NewMockBrandRepository(ctrl), principals)

	p := &domain.Principal{Ref: player("p"), ParentCashierID: ptr("c0")}
	_, err := r.InSubtree(context.Background(), "root", p)
	assert.ErrorIs(t, err, domain.ErrHierarchyTooDeep)
}

func TestScopeResolver_AuthorizeMovement(t *testing.T) {
	ctrl := gomock.NewController(t)
	principals := mocks.NewMockPrincipalRepository(ctrl)

	p1 := &domain.Principal{Ref: player("p1"), BrandID: brandA}
	p4 := &domain.Principal{Ref: player("p4"), BrandID: brandB}
	principals.EXPECT().Get(gomock.Any(), player("p1")).Return(p1, nil).AnyTimes()
	principals.EXPECT().Get(gomock.Any(), player("p4")).Return(p4, nil).AnyTimes()
	principals.EXPECT().Get(gomock.Any(), player("db")).Return(nil, errors.New("connection refused")).AnyTimes()

	r := usecase.NewScopeResolver(mocks.NewMockBrandRepository(ctrl), principals)
	ctx := context.Background()

	brandID, err := r.AuthorizeMovement(ctx, superAdmin, domain.Scope{Global: true}, nil, &p1.Ref, domain.TransactionMint)
	require.NoError(t, err)
	assert.Equal(t, brandA, brandID)

	_, err = r.AuthorizeMovement(ctx, superAdmin, domain.Scope{Global: true}, &p1.Ref, &p4.Ref, domain.TransactionTransfer)
	assert.ErrorIs(t, err, domain.ErrTenantIsolation)

	_, err = r.AuthorizeMovement(ctx, providerA, domain.Scope{BrandID: brandA}, &p1.Ref, nil, domain.TransactionWithdrawal)
	assert.ErrorIs(t, err, domain.ErrWithdrawalForbidden)

	_, err = r.AuthorizeMovement(ctx, providerA, domain.Scope{BrandID: brandA}, ptr(backoffice("op-a")), &p1.Ref, domain.TransactionDeposit)
	assert.ErrorIs(t, err, domain.ErrTransactionTypeForbidden)

	_, err = r.AuthorizeMovement(ctx, superAdmin, domain.Scope{BrandID: brandA}, &p1.Ref, ptr(player("db")), domain.TransactionTransfer)
	assert.EqualError(t, err, "connection refused")
}

func TestScopeResolver_ScopePrincipalFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	principals := mocks.NewMockPrincipalRepository(ctrl)
	r := usecase.NewScopeResolver(mocks.NewMockBrandRepository(ctrl), principals)
	ctx := context.Background()
	scope := domain.Scope{BrandID: brandA}

	got, err := r.ScopePrincipalFilter(ctx, cashier1, scope, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, backoffice("c1"), *got)

	got, err = r.ScopePrincipalFilter(ctx, operatorA, scope, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = r.ScopePrincipalFilter(ctx, operatorA, scope, &domain.PrincipalRef{Type: "robot", ID: "r"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
