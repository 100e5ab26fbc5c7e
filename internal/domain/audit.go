package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind names which ledger an audit record belongs to.
type LedgerKind string

const (
	LedgerLegacy  LedgerKind = "legacy"
	LedgerUnified LedgerKind = "unified"
)

// AuditRecord is the immutable trail of one successful balance mutation.
// Legacy balances are recorded in minor units.
type AuditRecord struct {
	ID             string
	BrandID        string
	Ledger         LedgerKind
	ActorID        string
	ActorRole      Role
	From           *PrincipalRef
	To             *PrincipalRef
	FromBefore     *decimal.Decimal
	FromAfter      *decimal.Decimal
	ToBefore       *decimal.Decimal
	ToAfter        *decimal.Decimal
	Amount         decimal.Decimal
	Operation      string // ledger reason or transaction type
	IdempotencyKey string
	ReferenceID    string // ledger entry id or wallet transaction id
	CreatedAt      time.Time
}

// AuditFilter defines filters for querying the audit trail
type AuditFilter struct {
	BrandID   string // empty means every brand
	Principal *PrincipalRef
	Operation string
	Ledger    LedgerKind
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// NewLegacyAuditRecord builds the audit record for a legacy ledger entry.
func NewLegacyAuditRecord(id string, entry *LedgerEntry) *AuditRecord {
	player := &PrincipalRef{Type: PrincipalPlayer, ID: entry.PlayerID}
	before := decimal.NewFromInt(entry.BalanceBefore)
	after := decimal.NewFromInt(entry.BalanceAfter)

	rec := &AuditRecord{
		ID:             id,
		BrandID:        entry.BrandID,
		Ledger:         LedgerLegacy,
		ActorID:        entry.ActorID,
		ActorRole:      entry.ActorRole,
		Amount:         decimal.NewFromInt(entry.DeltaMinorUnits).Abs(),
		Operation:      string(entry.Reason),
		IdempotencyKey: deref(entry.ExternalRef),
		CreatedAt:      entry.CreatedAt,
	}

	if entry.DeltaMinorUnits < 0 {
		rec.From, rec.FromBefore, rec.FromAfter = player, &before, &after
	} else {
		rec.To, rec.ToBefore, rec.ToAfter = player, &before, &after
	}

	return rec
}

// NewUnifiedAuditRecord builds the audit record for a wallet transaction.
func NewUnifiedAuditRecord(id string, txn *WalletTransaction) *AuditRecord {
	return &AuditRecord{
		ID:             id,
		BrandID:        txn.BrandID,
		Ledger:         LedgerUnified,
		ActorID:        txn.CreatedByID,
		ActorRole:      txn.CreatedByRole,
		From:           txn.From,
		To:             txn.To,
		FromBefore:     txn.PreviousBalanceFrom,
		FromAfter:      txn.NewBalanceFrom,
		ToBefore:       txn.PreviousBalanceTo,
		ToAfter:        txn.NewBalanceTo,
		Amount:         txn.Amount,
		Operation:      string(txn.Type),
		IdempotencyKey: txn.IdempotencyKey,
		ReferenceID:    txn.ID,
		CreatedAt:      txn.CreatedAt,
	}
}
