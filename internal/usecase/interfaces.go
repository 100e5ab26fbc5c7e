package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
)

// BrandRepository resolves tenants.
type BrandRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Brand, error)
	GetByHostname(ctx context.Context, hostname string) (*domain.Brand, error)
}

// PrincipalRepository defines data access for players and backoffice users
// together with their unified balances.
type PrincipalRepository interface {
	Get(ctx context.Context, ref domain.PrincipalRef) (*domain.Principal, error)
	// GetForUpdate locks the rows in the order given. Callers pass refs
	// sorted by Key.
	GetForUpdate(ctx context.Context, tx Transaction, refs []domain.PrincipalRef) (map[string]*domain.Principal, error)
	Create(ctx context.Context, tx Transaction, principal *domain.Principal) error
	UpdateBalance(ctx context.Context, tx Transaction, ref domain.PrincipalRef, balance decimal.Decimal, updatedAt time.Time) error
}

// LegacyBalanceRepository defines data access for integer player balances.
type LegacyBalanceRepository interface {
	Get(ctx context.Context, playerID string) (*domain.LegacyBalance, error)
	GetForUpdate(ctx context.Context, tx Transaction, playerID string) (*domain.LegacyBalance, error)
	Create(ctx context.Context, tx Transaction, balance *domain.LegacyBalance) error
	UpdateBalance(ctx context.Context, tx Transaction, playerID string, balance int64, updatedAt time.Time) error
}

// LedgerEntryRepository defines data access for the append-only legacy ledger.
type LedgerEntryRepository interface {
	// Create assigns entry.ID. It returns domain.ErrDuplicateIdempotencyKey when
	// the external reference exists and domain.ErrAlreadyRolledBack when the
	// original entry already has a rollback.
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error)
	GetRollbackOf(ctx context.Context, tx Transaction, entryID int64) (*domain.LedgerEntry, error)
}

// WalletTransactionRepository defines data access for unified transactions.
type WalletTransactionRepository interface {
	// Create returns domain.ErrDuplicateIdempotencyKey when the key exists and
	// domain.ErrAlreadyRolledBack when the reversed transaction already has a reversal.
	Create(ctx context.Context, tx Transaction, txn *domain.WalletTransaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error)
	GetReversal(ctx context.Context, tx Transaction, originalID string) (*domain.WalletTransaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error)
}

// OverdraftRepository answers whether a debit may take a principal negative.
type OverdraftRepository interface {
	AllowsNegative(ctx context.Context, tx Transaction, brandID string, from domain.PrincipalRef, to *domain.PrincipalRef) (bool, error)
}

// AuditRepository defines data access for the financial audit trail.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, record *domain.AuditRecord) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// ReconciliationRepository computes balances from the ledgers.
type ReconciliationRepository interface {
	LegacyDiscrepancies(ctx context.Context) (checked int, found []domain.LegacyDiscrepancy, err error)
	UnifiedDiscrepancies(ctx context.Context) (checked int, found []domain.UnifiedDiscrepancy, err error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient contention.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore caches committed outcomes by idempotency key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
