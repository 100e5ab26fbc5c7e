package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// OverdraftRepository implements usecase.OverdraftRepository.
type OverdraftRepository struct {
	db querier
}

// NewOverdraftRepository creates a new OverdraftRepository.
func NewOverdraftRepository(pool *pgxpool.Pool) *OverdraftRepository {
	return &OverdraftRepository{db: pool}
}

// Create grants an allowance. Used by provisioning tools.
func (r *OverdraftRepository) Create(ctx context.Context, a domain.OverdraftAllowance) error {
	toType, toID := refArgs(a.To)
	_, err := r.db.Exec(ctx,
		`INSERT INTO overdraft_allowances (brand_id, from_type, from_id, to_type, to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.BrandID, string(a.From.Type), a.From.ID, toType, toID, timeToPgTimestamptz(time.Now().UTC()),
	)
	return mapError(err)
}

// AllowsNegative reports whether from may go negative towards to. An
// allowance without a counterparty matches every counterparty.
func (r *OverdraftRepository) AllowsNegative(ctx context.Context, tx usecase.Transaction, brandID string, from domain.PrincipalRef, to *domain.PrincipalRef) (bool, error) {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return false, err
	}

	toType, toID := refArgs(to)

	var allowed bool
	err = pgTx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM overdraft_allowances
			WHERE brand_id = $1 AND from_type = $2 AND from_id = $3
			  AND (to_id IS NULL OR (to_type = $4 AND to_id = $5))
		)`,
		brandID, string(from.Type), from.ID, toType, toID,
	).Scan(&allowed)
	if err != nil {
		return false, mapError(err)
	}
	return allowed, nil
}
