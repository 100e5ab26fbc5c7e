package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

const auditColumns = `id, brand_id, ledger, actor_id, actor_role, from_type, from_id, to_type, to_id,
	from_before, from_after, to_before, to_after, amount, operation, idempotency_key,
	reference_id, created_at`

// AuditRepository implements audit trail persistence
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

// CreateTx inserts an audit record inside the mutation's transaction
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, rec *domain.AuditRecord) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	fromType, fromID := refArgs(rec.From)
	toType, toID := refArgs(rec.To)

	query := `
		INSERT INTO audit_records (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = pgTx.Exec(ctx, query,
		rec.ID,
		rec.BrandID,
		string(rec.Ledger),
		rec.ActorID,
		string(rec.ActorRole),
		fromType,
		fromID,
		toType,
		toID,
		decimalPtrToNumeric(rec.FromBefore),
		decimalPtrToNumeric(rec.FromAfter),
		decimalPtrToNumeric(rec.ToBefore),
		decimalPtrToNumeric(rec.ToAfter),
		decimalToNumeric(rec.Amount),
		rec.Operation,
		rec.IdempotencyKey,
		rec.ReferenceID,
		timeToPgTimestamptz(rec.CreatedAt),
	)

	return mapError(err)
}

// List retrieves audit records with filtering, newest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	var w whereBuilder

	if filter.BrandID != "" {
		w.where("brand_id = " + w.arg(filter.BrandID))
	}

	if filter.Principal != nil {
		w.involving(filter.Principal)
	}

	if filter.Operation != "" {
		w.where("operation = " + w.arg(filter.Operation))
	}

	if filter.Ledger != "" {
		w.where("ledger = " + w.arg(string(filter.Ledger)))
	}

	w.between("created_at", filter.StartDate, filter.EndDate)

	query := `SELECT ` + auditColumns + ` FROM audit_records` + w.String() +
		w.page("created_at DESC, id DESC", filter.Limit, filter.Offset, defaultListLimit)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var (
			rec                                      domain.AuditRecord
			ledger, role                             string
			fromType, fromID, toType, toID           *string
			fromBefore, fromAfter, toBefore, toAfter pgtype.Numeric
			amount                                   pgtype.Numeric
		)

		err := rows.Scan(
			&rec.ID,
			&rec.BrandID,
			&ledger,
			&rec.ActorID,
			&role,
			&fromType,
			&fromID,
			&toType,
			&toID,
			&fromBefore,
			&fromAfter,
			&toBefore,
			&toAfter,
			&amount,
			&rec.Operation,
			&rec.IdempotencyKey,
			&rec.ReferenceID,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.Ledger = domain.LedgerKind(ledger)
		rec.ActorRole = domain.Role(role)
		rec.From = refFromColumns(fromType, fromID)
		rec.To = refFromColumns(toType, toID)
		rec.FromBefore = numericToDecimalPtr(fromBefore)
		rec.FromAfter = numericToDecimalPtr(fromAfter)
		rec.ToBefore = numericToDecimalPtr(toBefore)
		rec.ToAfter = numericToDecimalPtr(toAfter)
		rec.Amount = numericToDecimal(amount)

		records = append(records, &rec)
	}

	return records, rows.Err()
}
