package handler

import (
	"context"
	"net/http"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/adapter/http/middleware"
	"github.com/iho/casinowallet/internal/domain"
)

// ReconciliationService checks stored balances against the ledgers.
type ReconciliationService interface {
	Run(ctx context.Context, actor domain.Actor) (*domain.ReconciliationReport, error)
}

// ReconciliationHandler serves reconciliation reports.
type ReconciliationHandler struct {
	reconciler ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciler ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// Run reconciles both ledgers and returns the report.
func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	report, err := h.reconciler.Run(r.Context(), actor)
	if err != nil {
		writeDomainError(w, "failed to reconcile", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromDomain(report))
}
