package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"
)

// LedgerReason classifies a legacy ledger entry.
type LedgerReason string

const (
	ReasonBet        LedgerReason = "BET"
	ReasonWin        LedgerReason = "WIN"
	ReasonBonus      LedgerReason = "BONUS"
	ReasonAdminGrant LedgerReason = "ADMIN_GRANT"
	ReasonAdminDebit LedgerReason = "ADMIN_DEBIT"
	ReasonRollback   LedgerReason = "ROLLBACK"
	ReasonAdjust     LedgerReason = "ADJUST"
	ReasonRefund     LedgerReason = "REFUND"
)

// IsValid checks if the reason is known.
func (r LedgerReason) IsValid() bool {
	switch r {
	case ReasonBet, ReasonWin, ReasonBonus, ReasonAdminGrant,
		ReasonAdminDebit, ReasonRollback, ReasonAdjust, ReasonRefund:
		return true
	}
	return false
}

// AllowsDebit reports whether the reason may decrease a balance.
func (r LedgerReason) AllowsDebit() bool {
	return r == ReasonBet || r == ReasonAdminDebit || r == ReasonAdjust
}

// AllowsCredit reports whether the reason may increase a balance.
func (r LedgerReason) AllowsCredit() bool {
	switch r {
	case ReasonWin, ReasonBonus, ReasonAdminGrant, ReasonAdjust, ReasonRefund:
		return true
	}
	return false
}

// LegacyBalance is a player's integer minor-unit balance.
type LegacyBalance struct {
	PlayerID          string
	BrandID           string
	BalanceMinorUnits int64
	UpdatedAt         time.Time
}

// ValidateDebit rejects debits that would take the balance below zero.
func (b *LegacyBalance) ValidateDebit(amount int64) error {
	if b.BalanceMinorUnits-amount < 0 {
		return fmt.Errorf("%w: balance %d, debit %d", ErrInsufficientFunds, b.BalanceMinorUnits, amount)
	}
	return nil
}

// ValidateCredit rejects credits that would overflow the balance.
func (b *LegacyBalance) ValidateCredit(amount int64) error {
	if b.BalanceMinorUnits > math.MaxInt64-amount {
		return ErrBalanceOverflow
	}
	return nil
}

// LedgerEntry is an append-only legacy balance mutation.
type LedgerEntry struct {
	ID              int64
	PlayerID        string
	BrandID         string
	DeltaMinorUnits int64
	Reason          LedgerReason
	RoundID         *string
	ExternalRef     *string
	GameCode        *string
	Provider        *string
	RollbackOf      *int64
	BalanceBefore   int64
	BalanceAfter    int64
	ActorID         string
	ActorRole       Role
	PayloadHash     string
	CreatedAt       time.Time
}

// LegacyDirection is the sign of a legacy posting.
type LegacyDirection string

const (
	DirectionDebit  LegacyDirection = "debit"
	DirectionCredit LegacyDirection = "credit"
)

// LegacyPosting is a debit or credit request against a player's legacy balance.
type LegacyPosting struct {
	PlayerID         string
	Direction        LegacyDirection
	AmountMinorUnits int64
	Reason           LedgerReason
	RoundID          *string
	ExternalRef      string
	GameCode         *string
	Provider         *string
}

// Validate checks the posting before any mutation is attempted.
func (p LegacyPosting) Validate() error {
	if p.PlayerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidPrincipal)
	}
	if err := ValidateCallerKey(p.ExternalRef); err != nil {
		return err
	}
	if err := ValidateMinorUnits(p.AmountMinorUnits); err != nil {
		return err
	}
	if !p.Reason.IsValid() || p.Reason == ReasonRollback {
		return fmt.Errorf("%w: %q", ErrInvalidReason, p.Reason)
	}

	switch p.Direction {
	case DirectionDebit:
		if !p.Reason.AllowsDebit() {
			return fmt.Errorf("%w: %s cannot debit", ErrInvalidReason, p.Reason)
		}
	case DirectionCredit:
		if !p.Reason.AllowsCredit() {
			return fmt.Errorf("%w: %s cannot credit", ErrInvalidReason, p.Reason)
		}
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrValidation, p.Direction)
	}

	return nil
}

// Delta returns the signed balance change.
func (p LegacyPosting) Delta() int64 {
	if p.Direction == DirectionDebit {
		return -p.AmountMinorUnits
	}
	return p.AmountMinorUnits
}

// Fingerprint hashes every field that defines the posting.
func (p LegacyPosting) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		p.PlayerID,
		string(p.Direction),
		strconv.FormatInt(p.AmountMinorUnits, 10),
		string(p.Reason),
		deref(p.RoundID),
		p.ExternalRef,
		deref(p.GameCode),
		deref(p.Provider),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RollbackFingerprint hashes a rollback request for the given original reference.
func RollbackFingerprint(originalRef string) string {
	sum := sha256.Sum256([]byte("rollback\x00" + originalRef))
	return hex.EncodeToString(sum[:])
}

// LegacyRollbackRef is the external reference recorded on a rollback entry.
func LegacyRollbackRef(originalRef string) string {
	return RollbackKeyPrefix + originalRef
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
