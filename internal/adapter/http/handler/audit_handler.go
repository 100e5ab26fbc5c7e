package handler

import (
	"context"
	"net/http"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	"github.com/iho/casinowallet/internal/domain"
)

// AuditService reads the audit trail.
type AuditService interface {
	List(ctx context.Context, actor domain.Actor, requested domain.BrandScope, filter domain.AuditFilter) ([]*domain.AuditRecord, error)
}

// AuditHandler serves the audit trail.
type AuditHandler struct {
	audit AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns audit records visible to the actor.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := requestContext(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.AuditFilter{
		Operation: q.Get("operation"),
		Ledger:    domain.LedgerKind(q.Get("ledger")),
		Limit:     parseIntQuery(r, "limit", 0),
		Offset:    parseIntQuery(r, "offset", 0),
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

	records, err := h.audit.List(r.Context(), actor, scope, filter)
	if err != nil {
		writeDomainError(w, "failed to list audit records", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditRecordsFromDomain(records))
}
