package domain

import (
	"strconv"
	"time"
)

// Event types
const (
	EventTypeLedgerEntryPosted       = "ledger.entry.posted"
	EventTypeLedgerEntryRolledBack   = "ledger.entry.rolled_back"
	EventTypeWalletTransactionPosted = "wallet.transaction.created"
	EventTypePrincipalCreated        = "principal.created"
)

// Aggregate types
const (
	AggregateTypeLedgerEntry       = "ledger_entry"
	AggregateTypeWalletTransaction = "wallet_transaction"
	AggregateTypePrincipal         = "principal"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewLedgerEntryEvent builds the outbox event for a legacy posting.
func NewLedgerEntryEvent(id string, entry *LedgerEntry) *OutboxEvent {
	eventType := EventTypeLedgerEntryPosted
	payload := map[string]any{
		"player_id":      entry.PlayerID,
		"brand_id":       entry.BrandID,
		"delta":          entry.DeltaMinorUnits,
		"reason":         string(entry.Reason),
		"balance_before": entry.BalanceBefore,
		"balance_after":  entry.BalanceAfter,
		"external_ref":   deref(entry.ExternalRef),
	}
	if entry.RollbackOf != nil {
		eventType = EventTypeLedgerEntryRolledBack
		payload["rollback_of"] = *entry.RollbackOf
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   strconv.FormatInt(entry.ID, 10),
		AggregateType: AggregateTypeLedgerEntry,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     entry.CreatedAt,
	}
}

// NewWalletTransactionEvent builds the outbox event for a unified transaction.
func NewWalletTransactionEvent(id string, txn *WalletTransaction) *OutboxEvent {
	payload := map[string]any{
		"brand_id":        txn.BrandID,
		"type":            string(txn.Type),
		"amount":          txn.Amount.String(),
		"idempotency_key": txn.IdempotencyKey,
		"created_by":      txn.CreatedByID,
	}
	if txn.From != nil {
		payload["from"] = txn.From.Key()
		payload["new_balance_from"] = txn.NewBalanceFrom.String()
	}
	if txn.To != nil {
		payload["to"] = txn.To.Key()
		payload["new_balance_to"] = txn.NewBalanceTo.String()
	}
	if txn.ReversesTransactionID != nil {
		payload["reverses_transaction_id"] = *txn.ReversesTransactionID
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   txn.ID,
		AggregateType: AggregateTypeWalletTransaction,
		EventType:     EventTypeWalletTransactionPosted,
		Payload:       payload,
		CreatedAt:     txn.CreatedAt,
	}
}

// NewPrincipalCreatedEvent builds the outbox event for a new principal.
func NewPrincipalCreatedEvent(id string, p *Principal) *OutboxEvent {
	payload := map[string]any{
		"principal": p.Ref.Key(),
		"brand_id":  p.BrandID,
		"role":      string(p.Role),
	}
	if p.ParentCashierID != nil {
		payload["parent_cashier_id"] = *p.ParentCashierID
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   p.Ref.Key(),
		AggregateType: AggregateTypePrincipal,
		EventType:     EventTypePrincipalCreated,
		Payload:       payload,
		CreatedAt:     p.CreatedAt,
	}
}
