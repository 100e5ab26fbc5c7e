package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LegacyBalanceResponse is a player's legacy balance in minor units.
type LegacyBalanceResponse struct {
	Success   bool      `json:"success"`
	PlayerID  string    `json:"player_id"`
	BrandID   string    `json:"brand_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LegacyBalanceFromDomain converts a legacy balance to response.
func LegacyBalanceFromDomain(b *domain.LegacyBalance) *LegacyBalanceResponse {
	return &LegacyBalanceResponse{
		Success:   true,
		PlayerID:  b.PlayerID,
		BrandID:   b.BrandID,
		Balance:   b.BalanceMinorUnits,
		UpdatedAt: b.UpdatedAt,
	}
}

// LedgerEntryResponse represents a legacy ledger entry.
type LedgerEntryResponse struct {
	ID            int64     `json:"id"`
	PlayerID      string    `json:"player_id"`
	BrandID       string    `json:"brand_id"`
	Delta         int64     `json:"delta"`
	Reason        string    `json:"reason"`
	RoundID       *string   `json:"round_id,omitempty"`
	ExternalRef   *string   `json:"external_ref,omitempty"`
	GameCode      *string   `json:"game_code,omitempty"`
	Provider      *string   `json:"provider,omitempty"`
	RollbackOf    *int64    `json:"rollback_of,omitempty"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	ActorID       string    `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerEntryFromDomain converts a ledger entry to response.
func LedgerEntryFromDomain(e *domain.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:            e.ID,
		PlayerID:      e.PlayerID,
		BrandID:       e.BrandID,
		Delta:         e.DeltaMinorUnits,
		Reason:        string(e.Reason),
		RoundID:       e.RoundID,
		ExternalRef:   e.ExternalRef,
		GameCode:      e.GameCode,
		Provider:      e.Provider,
		RollbackOf:    e.RollbackOf,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		ActorID:       e.ActorID,
		ActorRole:     string(e.ActorRole),
		CreatedAt:     e.CreatedAt,
	}
}

// LegacyResultResponse is the gateway envelope of a legacy posting or
// rollback. Failures carry Success false and ErrorMessage.
type LegacyResultResponse struct {
	Success      bool                 `json:"success"`
	Balance      int64                `json:"balance"`
	LedgerID     *int64               `json:"ledgerId,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
	Replayed     bool                 `json:"replayed"`
	Entry        *LedgerEntryResponse `json:"entry,omitempty"`
}

// LegacyResultFromUseCase converts a legacy result to response.
func LegacyResultFromUseCase(r *usecase.LegacyResult) *LegacyResultResponse {
	resp := &LegacyResultResponse{
		Success:  true,
		Balance:  r.Balance,
		Replayed: r.Replayed,
	}
	if r.Entry != nil {
		id := r.Entry.ID
		resp.LedgerID = &id
		resp.Entry = LedgerEntryFromDomain(r.Entry)
	}
	return resp
}

// LegacyFailure is the gateway envelope of a rejected legacy call.
func LegacyFailure(message string) *LegacyResultResponse {
	return &LegacyResultResponse{ErrorMessage: message}
}

// TransactionResponse represents a unified wallet transaction.
type TransactionResponse struct {
	ID                    string               `json:"id"`
	BrandID               string               `json:"brand_id"`
	From                  *domain.PrincipalRef `json:"from,omitempty"`
	To                    *domain.PrincipalRef `json:"to,omitempty"`
	Amount                decimal.Decimal      `json:"amount"`
	PreviousBalanceFrom   *decimal.Decimal     `json:"previous_balance_from,omitempty"`
	NewBalanceFrom        *decimal.Decimal     `json:"new_balance_from,omitempty"`
	PreviousBalanceTo     *decimal.Decimal     `json:"previous_balance_to,omitempty"`
	NewBalanceTo          *decimal.Decimal     `json:"new_balance_to,omitempty"`
	Type                  string               `json:"type"`
	Description           string               `json:"description,omitempty"`
	CreatedByID           string               `json:"created_by_id"`
	CreatedByRole         string               `json:"created_by_role"`
	IdempotencyKey        string               `json:"idempotency_key"`
	ReversesTransactionID *string              `json:"reverses_transaction_id,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
}

// TransactionFromDomain converts a wallet transaction to response.
func TransactionFromDomain(t *domain.WalletTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                    t.ID,
		BrandID:               t.BrandID,
		From:                  t.From,
		To:                    t.To,
		Amount:                t.Amount,
		PreviousBalanceFrom:   t.PreviousBalanceFrom,
		NewBalanceFrom:        t.NewBalanceFrom,
		PreviousBalanceTo:     t.PreviousBalanceTo,
		NewBalanceTo:          t.NewBalanceTo,
		Type:                  string(t.Type),
		Description:           t.Description,
		CreatedByID:           t.CreatedByID,
		CreatedByRole:         string(t.CreatedByRole),
		IdempotencyKey:        t.IdempotencyKey,
		ReversesTransactionID: t.ReversesTransactionID,
		CreatedAt:             t.CreatedAt,
	}
}

// TransactionsFromDomain converts wallet transactions to responses.
func TransactionsFromDomain(txns []*domain.WalletTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransferResultResponse is the outcome of a transfer or rollback.
type TransferResultResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Replayed    bool                 `json:"replayed"`
}

// TransferResultFromUseCase converts a transfer result to response.
func TransferResultFromUseCase(r *usecase.TransferResult) *TransferResultResponse {
	return &TransferResultResponse{
		Transaction: TransactionFromDomain(r.Transaction),
		Replayed:    r.Replayed,
	}
}

// PrincipalResponse represents a player or backoffice user.
type PrincipalResponse struct {
	Type            string          `json:"type"`
	ID              string          `json:"id"`
	BrandID         string          `json:"brand_id"`
	Username        string          `json:"username"`
	Role            string          `json:"role,omitempty"`
	ParentCashierID *string         `json:"parent_cashier_id,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PrincipalFromDomain converts a principal to response.
func PrincipalFromDomain(p *domain.Principal) *PrincipalResponse {
	return &PrincipalResponse{
		Type:            string(p.Ref.Type),
		ID:              p.Ref.ID,
		BrandID:         p.BrandID,
		Username:        p.Username,
		Role:            string(p.Role),
		ParentCashierID: p.ParentCashierID,
		Balance:         p.Balance,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// AuditRecordResponse represents an audit trail record.
type AuditRecordResponse struct {
	ID             string               `json:"id"`
	BrandID        string               `json:"brand_id"`
	Ledger         string               `json:"ledger"`
	ActorID        string               `json:"actor_id"`
	ActorRole      string               `json:"actor_role"`
	From           *domain.PrincipalRef `json:"from,omitempty"`
	To             *domain.PrincipalRef `json:"to,omitempty"`
	FromBefore     *decimal.Decimal     `json:"from_before,omitempty"`
	FromAfter      *decimal.Decimal     `json:"from_after,omitempty"`
	ToBefore       *decimal.Decimal     `json:"to_before,omitempty"`
	ToAfter        *decimal.Decimal     `json:"to_after,omitempty"`
	Amount         decimal.Decimal      `json:"amount"`
	Operation      string               `json:"operation"`
	IdempotencyKey string               `json:"idempotency_key"`
	ReferenceID    string               `json:"reference_id"`
	CreatedAt      time.Time            `json:"created_at"`
}

// AuditRecordsFromDomain converts audit records to responses.
func AuditRecordsFromDomain(records []*domain.AuditRecord) []*AuditRecordResponse {
	result := make([]*AuditRecordResponse, len(records))
	for i, a := range records {
		result[i] = &AuditRecordResponse{
			ID:             a.ID,
			BrandID:        a.BrandID,
			Ledger:         string(a.Ledger),
			ActorID:        a.ActorID,
			ActorRole:      string(a.ActorRole),
			From:           a.From,
			To:             a.To,
			FromBefore:     a.FromBefore,
			FromAfter:      a.FromAfter,
			ToBefore:       a.ToBefore,
			ToAfter:        a.ToAfter,
			Amount:         a.Amount,
			Operation:      a.Operation,
			IdempotencyKey: a.IdempotencyKey,
			ReferenceID:    a.ReferenceID,
			CreatedAt:      a.CreatedAt,
		}
	}
	return result
}

// ReconciliationResponse summarises a reconciliation run.
type ReconciliationResponse struct {
	CheckedAt      time.Time                   `json:"checked_at"`
	Balanced       bool                        `json:"balanced"`
	LegacyChecked  int                         `json:"legacy_checked"`
	UnifiedChecked int                         `json:"unified_checked"`
	Legacy         []domain.LegacyDiscrepancy  `json:"legacy_discrepancies"`
	Unified        []domain.UnifiedDiscrepancy `json:"unified_discrepancies"`
}

// ReconciliationFromDomain converts a report to response.
func ReconciliationFromDomain(r *domain.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		CheckedAt:      r.CheckedAt,
		Balanced:       r.IsBalanced(),
		LegacyChecked:  r.LegacyChecked,
		UnifiedChecked: r.UnifiedChecked,
		Legacy:         r.Legacy,
		Unified:        r.Unified,
	}
	if resp.Legacy == nil {
		resp.Legacy = []domain.LegacyDiscrepancy{}
	}
	if resp.Unified == nil {
		resp.Unified = []domain.UnifiedDiscrepancy{}
	}
	return resp
}
