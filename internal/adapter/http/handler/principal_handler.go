package handler

import (
	"context"
	"net/http"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// PrincipalService registers players and backoffice users.
type PrincipalService interface {
	Create(ctx context.Context, actor domain.Actor, requested domain.BrandScope, input usecase.CreatePrincipalInput) (*domain.Principal, error)
}

// PrincipalHandler handles principal registration.
type PrincipalHandler struct {
	principals PrincipalService
}

// NewPrincipalHandler creates a new PrincipalHandler.
func NewPrincipalHandler(principals PrincipalService) *PrincipalHandler {
	return &PrincipalHandler{principals: principals}
}

// Create registers a principal in the requested brand.
func (h *PrincipalHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	var req dto.CreatePrincipalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	principal, err := h.principals.Create(r.Context(), actor, scope, req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create principal", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PrincipalFromDomain(principal))
}
