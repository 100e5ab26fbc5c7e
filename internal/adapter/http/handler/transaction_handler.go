package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// TransactionService is the unified decimal ledger.
type TransactionService interface {
	Transfer(ctx context.Context, actor domain.Actor, requested domain.BrandScope, req domain.TransferRequest) (*usecase.TransferResult, error)
	RollbackByReference(ctx context.Context, actor domain.Actor, requested domain.BrandScope, externalRef string) (*usecase.TransferResult, error)
	GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, ref domain.PrincipalRef) (*domain.Principal, error)
	GetTransactions(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error)
}

// TransactionHandler handles unified ledger HTTP requests.
type TransactionHandler struct {
	ledger TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledger TransactionService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// Create posts a transfer, mint or withdrawal.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.ledger.Transfer(r.Context(), actor, scope, req.ToDomain())
	if err != nil {
		writeDomainError(w, "failed to create transaction", err)
		return
	}

	writeJSON(w, resultStatus(result.Replayed), dto.TransferResultFromUseCase(result))
}

// Rollback reverses the transaction recorded under the reference in the path.
func (h *TransactionHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.RollbackByReference(r.Context(), actor, scope, chi.URLParam(r, "reference"))
	if err != nil {
		writeDomainError(w, "failed to roll back transaction", err)
		return
	}

	writeJSON(w, resultStatus(result.Replayed), dto.TransferResultFromUseCase(result))
}

// List returns transactions visible to the actor, newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(r.URL.Query().Get("type")),
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}

	var err error
	if filter.Principal, err = parsePrincipalQuery(r, "principal"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid principal", err.Error())
		return
	}
	if filter.StartDate, err = parseTimeQuery(r, "start_date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date", err.Error())
		return
	}
	if filter.EndDate, err = parseTimeQuery(r, "end_date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date", err.Error())
		return
	}

	txns, err := h.ledger.GetTransactions(r.Context(), actor, scope, filter)
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Balance returns a principal with its unified balance.
func (h *TransactionHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	ref := domain.PrincipalRef{
		Type: domain.PrincipalType(chi.URLParam(r, "type")),
		ID:   chi.URLParam(r, "id"),
	}

	principal, err := h.ledger.GetBalance(r.Context(), actor, scope, ref)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PrincipalFromDomain(principal))
}
