package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

const ledgerEntryColumns = `id, player_id, brand_id, delta_minor_units, reason, round_id, external_ref,
	game_code, provider, rollback_of, balance_before, balance_after, actor_id, actor_role,
	payload_hash, created_at`

// LedgerEntryRepository implements usecase.LedgerEntryRepository.
type LedgerEntryRepository struct {
	db querier
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository.
func NewLedgerEntryRepository(pool *pgxpool.Pool) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: pool}
}

// Create appends an entry and assigns its ID.
func (r *LedgerEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	err = pgTx.QueryRow(ctx, `
		INSERT INTO ledger_entries (
			player_id, brand_id, delta_minor_units, reason, round_id, external_ref,
			game_code, provider, rollback_of, balance_before, balance_after,
			actor_id, actor_role, payload_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		entry.PlayerID, entry.BrandID, entry.DeltaMinorUnits, string(entry.Reason),
		entry.RoundID, entry.ExternalRef, entry.GameCode, entry.Provider, entry.RollbackOf,
		entry.BalanceBefore, entry.BalanceAfter, entry.ActorID, string(entry.ActorRole),
		entry.PayloadHash, timeToPgTimestamptz(entry.CreatedAt),
	).Scan(&entry.ID)

	return mapError(err)
}

// GetByExternalRef retrieves the committed entry posted under a reference.
func (r *LedgerEntryRepository) GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ledgerEntryColumns+` FROM ledger_entries WHERE external_ref = $1`, externalRef)
	return scanLedgerEntry(row)
}

// GetRollbackOf retrieves the rollback entry of entryID, if any.
func (r *LedgerEntryRepository) GetRollbackOf(ctx context.Context, tx usecase.Transaction, entryID int64) (*domain.LedgerEntry, error) {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	row := pgTx.QueryRow(ctx,
		`SELECT `+ledgerEntryColumns+` FROM ledger_entries WHERE rollback_of = $1`, entryID)
	return scanLedgerEntry(row)
}

func scanLedgerEntry(row scanner) (*domain.LedgerEntry, error) {
	var (
		e      domain.LedgerEntry
		reason string
		role   string
	)
	err := row.Scan(&e.ID, &e.PlayerID, &e.BrandID, &e.DeltaMinorUnits, &reason, &e.RoundID,
		&e.ExternalRef, &e.GameCode, &e.Provider, &e.RollbackOf, &e.BalanceBefore,
		&e.BalanceAfter, &e.ActorID, &role, &e.PayloadHash, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerEntryNotFound
		}
		return nil, mapError(err)
	}
	e.Reason = domain.LedgerReason(reason)
	e.ActorRole = domain.Role(role)
	return &e, nil
}
