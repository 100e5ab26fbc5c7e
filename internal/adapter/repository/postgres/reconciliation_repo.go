package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
)

// ReconciliationRepository implements usecase.ReconciliationRepository by
// recomputing balances from the ledgers.
type ReconciliationRepository struct {
	db querier
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{db: pool}
}

// LegacyDiscrepancies compares each stored legacy balance with the sum of its
// ledger deltas.
func (r *ReconciliationRepository) LegacyDiscrepancies(ctx context.Context) (int, []domain.LegacyDiscrepancy, error) {
	var checked int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM legacy_balances`).Scan(&checked); err != nil {
		return 0, nil, fmt.Errorf("count legacy balances: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT b.player_id, b.brand_id, b.balance_minor_units,
		       COALESCE(SUM(e.delta_minor_units), 0)::BIGINT AS calculated
		FROM legacy_balances b
		LEFT JOIN ledger_entries e ON e.player_id = b.player_id
		GROUP BY b.player_id, b.brand_id, b.balance_minor_units
		HAVING b.balance_minor_units <> COALESCE(SUM(e.delta_minor_units), 0)
		ORDER BY b.player_id`)
	if err != nil {
		return 0, nil, fmt.Errorf("legacy discrepancies: %w", err)
	}
	defer rows.Close()

	var found []domain.LegacyDiscrepancy
	for rows.Next() {
		var d domain.LegacyDiscrepancy
		if err := rows.Scan(&d.PlayerID, &d.BrandID, &d.Recorded, &d.Calculated); err != nil {
			return 0, nil, err
		}
		found = append(found, d)
	}

	return checked, found, rows.Err()
}

// UnifiedDiscrepancies compares each stored unified balance with the net of
// the transactions touching it.
func (r *ReconciliationRepository) UnifiedDiscrepancies(ctx context.Context) (int, []domain.UnifiedDiscrepancy, error) {
	var checked int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM principals`).Scan(&checked); err != nil {
		return 0, nil, fmt.Errorf("count principals: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		WITH movements AS (
			SELECT from_type AS principal_type, from_id AS id, -amount AS delta
			FROM wallet_transactions WHERE from_id IS NOT NULL
			UNION ALL
			SELECT to_type, to_id, amount
			FROM wallet_transactions WHERE to_id IS NOT NULL
		)
		SELECT p.principal_type, p.id, p.brand_id, p.balance, COALESCE(SUM(m.delta), 0) AS calculated
		FROM principals p
		LEFT JOIN movements m ON m.principal_type = p.principal_type AND m.id = p.id
		GROUP BY p.principal_type, p.id, p.brand_id, p.balance
		HAVING p.balance <> COALESCE(SUM(m.delta), 0)
		ORDER BY p.principal_type, p.id`)
	if err != nil {
		return 0, nil, fmt.Errorf("unified discrepancies: %w", err)
	}
	defer rows.Close()

	var found []domain.UnifiedDiscrepancy
	for rows.Next() {
		var (
			d                    domain.UnifiedDiscrepancy
			typ                  string
			recorded, calculated pgtype.Numeric
		)
		if err := rows.Scan(&typ, &d.Principal.ID, &d.BrandID, &recorded, &calculated); err != nil {
			return 0, nil, err
		}
		d.Principal.Type = domain.PrincipalType(typ)
		d.Recorded = numericToDecimal(recorded)
		d.Calculated = numericToDecimal(calculated)
		found = append(found, d)
	}

	return checked, found, rows.Err()
}
