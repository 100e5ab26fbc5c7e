package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/adapter/http/middleware"
	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// LegacyWalletService is the integer minor-unit ledger used by game gateways.
type LegacyWalletService interface {
	GetBalance(ctx context.Context, actor domain.Actor, requested domain.BrandScope, playerID string) (*domain.LegacyBalance, error)
	Debit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error)
	Credit(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error)
	Rollback(ctx context.Context, actor domain.Actor, requested domain.BrandScope, originalRef string) (*usecase.LegacyResult, error)
}

// LegacyHandler handles legacy wallet HTTP requests.
type LegacyHandler struct {
	wallet LegacyWalletService
}

// NewLegacyHandler creates a new LegacyHandler.
func NewLegacyHandler(wallet LegacyWalletService) *LegacyHandler {
	return &LegacyHandler{wallet: wallet}
}

// Balance returns a player's legacy balance.
func (h *LegacyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := legacyRequestContext(w, r)
	if !ok {
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), actor, scope, chi.URLParam(r, "playerID"))
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LegacyBalanceFromDomain(balance))
}

// Debit decreases a player's balance.
func (h *LegacyHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.wallet.Debit)
}

// Credit increases a player's balance.
func (h *LegacyHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.wallet.Credit)
}

type postFunc func(ctx context.Context, actor domain.Actor, requested domain.BrandScope, posting domain.LegacyPosting) (*usecase.LegacyResult, error)

func (h *LegacyHandler) post(w http.ResponseWriter, r *http.Request, post postFunc) {
	actor, scope, ok := legacyRequestContext(w, r)
	if !ok {
		return
	}

	var req dto.LegacyPostingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.LegacyFailure("invalid request body: "+err.Error()))
		return
	}

	result, err := post(r.Context(), actor, scope, req.ToDomain())
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	writeJSON(w, resultStatus(result.Replayed), dto.LegacyResultFromUseCase(result))
}

// Rollback reverses a legacy posting by its external reference.
func (h *LegacyHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := legacyRequestContext(w, r)
	if !ok {
		return
	}

	var req dto.LegacyRollbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.LegacyFailure("invalid request body: "+err.Error()))
		return
	}

	result, err := h.wallet.Rollback(r.Context(), actor, scope, req.ExternalRef)
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	writeJSON(w, resultStatus(result.Replayed), dto.LegacyResultFromUseCase(result))
}

// resultStatus answers replays with 200 and fresh postings with 201.
func resultStatus(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

// writeLegacyError answers a gateway with the envelope it expects. The
// status still follows the error class.
func writeLegacyError(w http.ResponseWriter, err error) {
	status := mapDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, dto.LegacyFailure(message))
}

func legacyRequestContext(w http.ResponseWriter, r *http.Request) (domain.Actor, domain.BrandScope, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeLegacyError(w, domain.ErrUnauthenticated)
		return domain.Actor{}, domain.BrandScope{}, false
	}
	return actor, middleware.BrandScopeFromContext(r.Context()), true
}
