package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

func TestTransactionHandler_Create_Success(t *testing.T) {
	var captured domain.TransferRequest

	h := NewTransactionHandler(&transactionServiceStub{
		transferFn: func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (*usecase.TransferResult, error) {
			captured = req
			return &usecase.TransferResult{Transaction: &domain.WalletTransaction{
				ID:     "tx-1",
				From:   req.From,
				To:     req.To,
				Amount: req.Amount,
				Type:   req.EffectiveType(),
			}}, nil
		},
	})

	body := []byte(`{
		"from": {"type": "backoffice", "id": "c1"},
		"to": {"type": "player", "id": "p1"},
		"amount": "25.5",
		"idempotency_key": "dep-1"
	}`)
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/wallet/transactions", body, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "dep-1", captured.IdempotencyKey)
	require.Equal(t, "c1", captured.From.ID)
	require.True(t, captured.Amount.Equal(decimal.RequireFromString("25.5")))

	resp := decodeBody[dto.TransferResultResponse](t, rec)
	require.Equal(t, "tx-1", resp.Transaction.ID)
	require.Equal(t, "TRANSFER", resp.Transaction.Type)
}

func TestTransactionHandler_Create_MapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"mint forbidden", domain.ErrMintForbidden, http.StatusForbidden},
		{"key reused", domain.ErrIdempotencyKeyReused, http.StatusBadRequest},
		{"contention", domain.ErrContention, http.StatusServiceUnavailable},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTransactionHandler(&transactionServiceStub{
				transferFn: func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (*usecase.TransferResult, error) {
					return nil, tt.err
				},
			})

			rec := httptest.NewRecorder()
			h.Create(rec, authedRequest(http.MethodPost, "/api/v1/wallet/transactions", []byte(`{"amount":"1","idempotency_key":"k"}`), nil))

			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestTransactionHandler_Rollback(t *testing.T) {
	var captured string
	h := NewTransactionHandler(&transactionServiceStub{
		rollbackFn: func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, externalRef string) (*usecase.TransferResult, error) {
			captured = externalRef
			reverses := "tx-1"
			return &usecase.TransferResult{
				Transaction: &domain.WalletTransaction{ID: "tx-2", Type: domain.TransactionRollback, ReversesTransactionID: &reverses},
				Replayed:    true,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Rollback(rec, authedRequest(http.MethodPost, "/api/v1/wallet/transactions/dep-1/rollback", nil, map[string]string{"reference": "dep-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dep-1", captured)

	resp := decodeBody[dto.TransferResultResponse](t, rec)
	require.True(t, resp.Replayed)
	require.Equal(t, "tx-1", *resp.Transaction.ReversesTransactionID)
}

func TestTransactionHandler_List_ParsesFilter(t *testing.T) {
	var captured domain.TransactionFilter
	h := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error) {
			captured = filter
			return []*domain.WalletTransaction{{ID: "tx-1"}, {ID: "tx-2"}}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/v1/wallet/transactions?principal=player:p1&type=BET&limit=10&offset=20&start_date=2024-01-01T00:00:00Z", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}, *captured.Principal)
	require.Equal(t, domain.TransactionBet, captured.Type)
	require.Equal(t, 10, captured.Limit)
	require.Equal(t, 20, captured.Offset)
	require.NotNil(t, captured.StartDate)
	require.Nil(t, captured.EndDate)
	require.Len(t, decodeBody[[]dto.TransactionResponse](t, rec), 2)
}

func TestTransactionHandler_List_RejectsBadQuery(t *testing.T) {
	h := NewTransactionHandler(&transactionServiceStub{})

	for _, target := range []string{
		"/api/v1/wallet/transactions?principal=p1",
		"/api/v1/wallet/transactions?end_date=tomorrow",
	} {
		rec := httptest.NewRecorder()
		h.List(rec, authedRequest(http.MethodGet, target, nil, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTransactionHandler_Balance(t *testing.T) {
	var captured domain.PrincipalRef
	h := NewTransactionHandler(&transactionServiceStub{
		balanceFn: func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, ref domain.PrincipalRef) (*domain.Principal, error) {
			captured = ref
			return &domain.Principal{Ref: ref, BrandID: "brand-a", Balance: decimal.RequireFromString("10.25")}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Balance(rec, authedRequest(http.MethodGet, "/api/v1/wallet/balances/player/p1", nil, map[string]string{"type": "player", "id": "p1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}, captured)
	require.True(t, decodeBody[dto.PrincipalResponse](t, rec).Balance.Equal(decimal.RequireFromString("10.25")))
}
