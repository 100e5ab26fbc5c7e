package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/infrastructure/metrics"
)

// LedgerDeps are the collaborators both ledgers share.
type LedgerDeps struct {
	TxManager TransactionManager
	Retrier   Retrier
	AuditRepo AuditRepository
	Outbox    OutboxRepository
	IDGen     IDGenerator
	Scope     *ScopeResolver
	Guard     *IdempotencyGuard
	Metrics   *metrics.Metrics // optional
	Logger    zerolog.Logger
}

// atomically runs fn inside one database transaction and commits it on a
// context that is no longer cancellable, so a started commit always finishes.
func (d *LedgerDeps) atomically(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := d.TxManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(txCtx))
	}()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit(context.WithoutCancel(txCtx))
}

// retry runs fn through the configured retrier, if any.
func (d *LedgerDeps) retry(ctx context.Context, fn func() error) error {
	if d.Retrier == nil {
		return fn()
	}
	return d.Retrier.Retry(ctx, fn)
}

// record appends the audit record and outbox event of a mutation.
func (d *LedgerDeps) record(ctx context.Context, tx Transaction, rec *domain.AuditRecord, event *domain.OutboxEvent) error {
	if err := d.AuditRepo.CreateTx(ctx, tx, rec); err != nil {
		return err
	}
	if d.Outbox != nil {
		if err := d.Outbox.Create(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func (d *LedgerDeps) countAudit(ledger domain.LedgerKind) {
	if d.Metrics != nil {
		d.Metrics.AuditRecords.WithLabelValues(string(ledger)).Inc()
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
