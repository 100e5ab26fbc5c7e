package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// LegacyPostingRequest represents a legacy debit or credit.
type LegacyPostingRequest struct {
	PlayerID    string  `json:"player_id"`
	Amount      int64   `json:"amount"` // minor units
	Reason      string  `json:"reason"`
	RoundID     *string `json:"round_id,omitempty"`
	ExternalRef string  `json:"external_ref"`
	GameCode    *string `json:"game_code,omitempty"`
	Provider    *string `json:"provider,omitempty"`
}

// ToDomain converts to a ledger posting. The direction is set by the ledger.
func (r *LegacyPostingRequest) ToDomain() domain.LegacyPosting {
	return domain.LegacyPosting{
		PlayerID:         r.PlayerID,
		AmountMinorUnits: r.Amount,
		Reason:           domain.LedgerReason(r.Reason),
		RoundID:          r.RoundID,
		ExternalRef:      r.ExternalRef,
		GameCode:         r.GameCode,
		Provider:         r.Provider,
	}
}

// LegacyRollbackRequest names the legacy posting to reverse.
type LegacyRollbackRequest struct {
	ExternalRef string `json:"external_ref"`
}

// TransferRequest represents a unified ledger transfer. A missing from mints
// and a missing to withdraws.
type TransferRequest struct {
	From           *domain.PrincipalRef `json:"from,omitempty"`
	To             *domain.PrincipalRef `json:"to,omitempty"`
	Amount         decimal.Decimal      `json:"amount"`
	Type           string               `json:"type,omitempty"`
	IdempotencyKey string               `json:"idempotency_key"`
	Description    string               `json:"description,omitempty"`
}

// ToDomain converts to a transfer request.
func (r *TransferRequest) ToDomain() domain.TransferRequest {
	return domain.TransferRequest{
		From:           r.From,
		To:             r.To,
		Amount:         r.Amount,
		Type:           domain.TransactionType(r.Type),
		IdempotencyKey: r.IdempotencyKey,
		Description:    r.Description,
	}
}

// CreatePrincipalRequest represents a request to register a player or a
// backoffice user.
type CreatePrincipalRequest struct {
	Type            string          `json:"type"`
	ID              string          `json:"id,omitempty"`
	Username        string          `json:"username"`
	Role            string          `json:"role,omitempty"`
	ParentCashierID *string         `json:"parent_cashier_id,omitempty"`
	InitialBalance  decimal.Decimal `json:"initial_balance"`
	InitialLegacy   int64           `json:"initial_legacy_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePrincipalRequest) ToUseCaseInput() usecase.CreatePrincipalInput {
	return usecase.CreatePrincipalInput{
		Type:            domain.PrincipalType(r.Type),
		ID:              r.ID,
		Username:        r.Username,
		Role:            domain.Role(r.Role),
		ParentCashierID: r.ParentCashierID,
		InitialBalance:  r.InitialBalance,
		InitialLegacy:   r.InitialLegacy,
	}
}
