package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
)

const brandColumns = `id, name, hostname, is_active, created_at`

// BrandRepository implements usecase.BrandRepository.
type BrandRepository struct {
	db querier
}

// NewBrandRepository creates a new BrandRepository.
func NewBrandRepository(pool *pgxpool.Pool) *BrandRepository {
	return &BrandRepository{db: pool}
}

// Create inserts a brand. Used by provisioning tools.
func (r *BrandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO brands (id, name, hostname, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		brand.ID, brand.Name, brand.Hostname, brand.IsActive, timeToPgTimestamptz(brand.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create brand: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves a brand by ID.
func (r *BrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	row := r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id)
	return scanBrand(row)
}

// GetByHostname retrieves a brand by the hostname it serves.
func (r *BrandRepository) GetByHostname(ctx context.Context, hostname string) (*domain.Brand, error) {
	row := r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE hostname = $1`, hostname)
	return scanBrand(row)
}

func scanBrand(row scanner) (*domain.Brand, error) {
	var b domain.Brand
	if err := row.Scan(&b.ID, &b.Name, &b.Hostname, &b.IsActive, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, err
	}
	return &b, nil
}
