package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

const principalColumns = `principal_type, id, brand_id, username, role, parent_cashier_id, balance, is_active, created_at, updated_at`

// PrincipalRepository implements usecase.PrincipalRepository.
type PrincipalRepository struct {
	db querier
}

// NewPrincipalRepository creates a new PrincipalRepository.
func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{db: pool}
}

// Get retrieves a principal without locking it.
func (r *PrincipalRepository) Get(ctx context.Context, ref domain.PrincipalRef) (*domain.Principal, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE principal_type = $1 AND id = $2`,
		string(ref.Type), ref.ID,
	)
	p, err := scanPrincipal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, ref)
	}
	return p, err
}

// GetForUpdate locks each principal row in the order given. Missing
// principals are absent from the result.
func (r *PrincipalRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, refs []domain.PrincipalRef) (map[string]*domain.Principal, error) {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*domain.Principal, len(refs))
	for _, ref := range refs {
		row := pgTx.QueryRow(ctx,
			`SELECT `+principalColumns+` FROM principals WHERE principal_type = $1 AND id = $2 FOR UPDATE`,
			string(ref.Type), ref.ID,
		)
		p, err := scanPrincipal(row)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, mapError(err)
		}
		out[ref.Key()] = p
	}

	return out, nil
}

// Create inserts a principal with its opening balance.
func (r *PrincipalRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Principal) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = pgTx.Exec(ctx,
		`INSERT INTO principals (`+principalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(p.Ref.Type), p.Ref.ID, p.BrandID, p.Username, string(p.Role), p.ParentCashierID,
		decimalToNumeric(p.Balance), p.IsActive,
		timeToPgTimestamptz(p.CreatedAt), timeToPgTimestamptz(p.UpdatedAt),
	)
	return mapError(err)
}

// UpdateBalance stores a new unified balance. The row must be locked by tx.
func (r *PrincipalRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, ref domain.PrincipalRef, balance decimal.Decimal, updatedAt time.Time) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := pgTx.Exec(ctx,
		`UPDATE principals SET balance = $3, updated_at = $4 WHERE principal_type = $1 AND id = $2`,
		string(ref.Type), ref.ID, decimalToNumeric(balance), timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, ref)
	}
	return nil
}

func scanPrincipal(row scanner) (*domain.Principal, error) {
	var (
		p       domain.Principal
		typ     string
		role    string
		balance pgtype.Numeric
	)
	err := row.Scan(&typ, &p.Ref.ID, &p.BrandID, &p.Username, &role, &p.ParentCashierID,
		&balance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Ref.Type = domain.PrincipalType(typ)
	p.Role = domain.Role(role)
	p.Balance = numericToDecimal(balance)
	return &p, nil
}
