package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Keys the engine writes itself. Callers may not use these prefixes.
const (
	// RollbackKeyPrefix namespaces the idempotency key of a reversal.
	RollbackKeyPrefix = "rollback:"
	// OpeningKeyPrefix namespaces the key of an opening balance.
	OpeningKeyPrefix = "opening:"
)

// TransactionType classifies a unified wallet transaction.
type TransactionType string

const (
	TransactionMint       TransactionType = "MINT"
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionBet        TransactionType = "BET"
	TransactionWin        TransactionType = "WIN"
	TransactionRollback   TransactionType = "ROLLBACK"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionBonus      TransactionType = "BONUS"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// IsValid checks if the type is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionMint, TransactionTransfer, TransactionBet, TransactionWin,
		TransactionRollback, TransactionDeposit, TransactionWithdrawal,
		TransactionBonus, TransactionAdjustment:
		return true
	}
	return false
}

// WalletTransaction is an immutable movement of unified funds.
type WalletTransaction struct {
	ID                    string
	BrandID               string
	From                  *PrincipalRef
	To                    *PrincipalRef
	Amount                decimal.Decimal
	PreviousBalanceFrom   *decimal.Decimal
	NewBalanceFrom        *decimal.Decimal
	PreviousBalanceTo     *decimal.Decimal
	NewBalanceTo          *decimal.Decimal
	Type                  TransactionType
	Description           string
	CreatedByID           string
	CreatedByRole         Role
	IdempotencyKey        string
	PayloadHash           string
	ReversesTransactionID *string
	CreatedAt             time.Time
}

// CheckSnapshots verifies the before/after arithmetic of both sides.
func (t *WalletTransaction) CheckSnapshots() error {
	if t.From != nil {
		if t.PreviousBalanceFrom == nil || t.NewBalanceFrom == nil {
			return fmt.Errorf("%w: missing from snapshot", ErrValidation)
		}
		if !t.PreviousBalanceFrom.Sub(t.Amount).Equal(*t.NewBalanceFrom) {
			return fmt.Errorf("%w: from snapshot does not balance", ErrValidation)
		}
	}
	if t.To != nil {
		if t.PreviousBalanceTo == nil || t.NewBalanceTo == nil {
			return fmt.Errorf("%w: missing to snapshot", ErrValidation)
		}
		if !t.PreviousBalanceTo.Add(t.Amount).Equal(*t.NewBalanceTo) {
			return fmt.Errorf("%w: to snapshot does not balance", ErrValidation)
		}
	}
	return nil
}

// TransferRequest describes a unified movement of funds.
type TransferRequest struct {
	From           *PrincipalRef
	To             *PrincipalRef
	Amount         decimal.Decimal
	Type           TransactionType // optional; derived when empty
	IdempotencyKey string
	Description    string
}

// EffectiveType derives MINT and WITHDRAWAL from the missing side.
func (r TransferRequest) EffectiveType() TransactionType {
	switch {
	case r.From == nil:
		return TransactionMint
	case r.To == nil:
		return TransactionWithdrawal
	case r.Type == "":
		return TransactionTransfer
	default:
		return r.Type
	}
}

// Validate checks the request before any mutation is attempted.
func (r TransferRequest) Validate() error {
	if err := ValidateCallerKey(r.IdempotencyKey); err != nil {
		return err
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if r.From == nil && r.To == nil {
		return ErrNoCounterparty
	}
	if r.From != nil {
		if err := r.From.Validate(); err != nil {
			return err
		}
	}
	if r.To != nil {
		if err := r.To.Validate(); err != nil {
			return err
		}
	}
	if r.From != nil && r.To != nil && r.From.Key() == r.To.Key() {
		return ErrSamePrincipal
	}
	if len(r.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}

	if r.Type != "" {
		if !r.Type.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidTransaction, r.Type)
		}
		if r.Type == TransactionRollback {
			return fmt.Errorf("%w: use rollback by reference", ErrInvalidTransaction)
		}
		if r.Type != r.EffectiveType() {
			return fmt.Errorf("%w: %s does not match the given principals", ErrInvalidTransaction, r.Type)
		}
		if (r.Type == TransactionMint) != (r.From == nil) {
			return fmt.Errorf("%w: %s requires a source", ErrInvalidTransaction, r.Type)
		}
		if (r.Type == TransactionWithdrawal) != (r.To == nil) {
			return fmt.Errorf("%w: %s requires a destination", ErrInvalidTransaction, r.Type)
		}
	}

	return nil
}

// Fingerprint hashes every field that defines the request.
func (r TransferRequest) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		refKey(r.From),
		refKey(r.To),
		r.Amount.String(),
		string(r.EffectiveType()),
		r.IdempotencyKey,
		r.Description,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Participants returns the non-nil principals of the request.
func (r TransferRequest) Participants() []PrincipalRef {
	refs := make([]PrincipalRef, 0, 2)
	if r.From != nil {
		refs = append(refs, *r.From)
	}
	if r.To != nil {
		refs = append(refs, *r.To)
	}
	return refs
}

// TransactionFilter filters unified transaction history.
type TransactionFilter struct {
	BrandID   string // empty means every brand
	Principal *PrincipalRef
	Type      TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// OverdraftAllowance lets a principal go negative towards a counterparty.
// A nil To applies to every counterparty in the brand.
type OverdraftAllowance struct {
	BrandID string
	From    PrincipalRef
	To      *PrincipalRef
}

func refKey(p *PrincipalRef) string {
	if p == nil {
		return ""
	}
	return p.Key()
}
