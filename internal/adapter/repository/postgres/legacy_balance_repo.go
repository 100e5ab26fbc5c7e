package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

const legacyBalanceColumns = `player_id, brand_id, balance_minor_units, updated_at`

// LegacyBalanceRepository implements usecase.LegacyBalanceRepository.
type LegacyBalanceRepository struct {
	db querier
}

// NewLegacyBalanceRepository creates a new LegacyBalanceRepository.
func NewLegacyBalanceRepository(pool *pgxpool.Pool) *LegacyBalanceRepository {
	return &LegacyBalanceRepository{db: pool}
}

// Get retrieves a player's balance without locking it.
func (r *LegacyBalanceRepository) Get(ctx context.Context, playerID string) (*domain.LegacyBalance, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+legacyBalanceColumns+` FROM legacy_balances WHERE player_id = $1`, playerID)
	return scanLegacyBalance(row)
}

// GetForUpdate retrieves and locks a player's balance row.
func (r *LegacyBalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, playerID string) (*domain.LegacyBalance, error) {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	row := pgTx.QueryRow(ctx,
		`SELECT `+legacyBalanceColumns+` FROM legacy_balances WHERE player_id = $1 FOR UPDATE`, playerID)
	b, err := scanLegacyBalance(row)
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

// Create inserts a player's balance row.
func (r *LegacyBalanceRepository) Create(ctx context.Context, tx usecase.Transaction, balance *domain.LegacyBalance) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = pgTx.Exec(ctx,
		`INSERT INTO legacy_balances (`+legacyBalanceColumns+`) VALUES ($1, $2, $3, $4)`,
		balance.PlayerID, balance.BrandID, balance.BalanceMinorUnits, timeToPgTimestamptz(balance.UpdatedAt),
	)
	return mapError(err)
}

// UpdateBalance stores a new balance. The row must be locked by tx.
func (r *LegacyBalanceRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, playerID string, balance int64, updatedAt time.Time) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := pgTx.Exec(ctx,
		`UPDATE legacy_balances SET balance_minor_units = $2, updated_at = $3 WHERE player_id = $1`,
		playerID, balance, timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func scanLegacyBalance(row scanner) (*domain.LegacyBalance, error) {
	var b domain.LegacyBalance
	if err := row.Scan(&b.PlayerID, &b.BrandID, &b.BalanceMinorUnits, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, err
	}
	return &b, nil
}
