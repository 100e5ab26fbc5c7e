package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

const walletTransactionColumns = `id, brand_id, from_type, from_id, to_type, to_id, amount,
	previous_balance_from, new_balance_from, previous_balance_to, new_balance_to, type,
	description, created_by_id, created_by_role, idempotency_key, payload_hash,
	reverses_transaction_id, created_at`

const defaultListLimit = 100

// WalletTransactionRepository implements usecase.WalletTransactionRepository.
type WalletTransactionRepository struct {
	db querier
}

// NewWalletTransactionRepository creates a new WalletTransactionRepository.
func NewWalletTransactionRepository(pool *pgxpool.Pool) *WalletTransactionRepository {
	return &WalletTransactionRepository{db: pool}
}

// Create inserts an immutable transaction row.
func (r *WalletTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.WalletTransaction) error {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	fromType, fromID := refArgs(txn.From)
	toType, toID := refArgs(txn.To)

	_, err = pgTx.Exec(ctx,
		`INSERT INTO wallet_transactions (`+walletTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		txn.ID, txn.BrandID, fromType, fromID, toType, toID, decimalToNumeric(txn.Amount),
		decimalPtrToNumeric(txn.PreviousBalanceFrom), decimalPtrToNumeric(txn.NewBalanceFrom),
		decimalPtrToNumeric(txn.PreviousBalanceTo), decimalPtrToNumeric(txn.NewBalanceTo),
		string(txn.Type), txn.Description, txn.CreatedByID, string(txn.CreatedByRole),
		txn.IdempotencyKey, txn.PayloadHash, txn.ReversesTransactionID,
		timeToPgTimestamptz(txn.CreatedAt),
	)
	return mapError(err)
}

// GetByIdempotencyKey retrieves the committed transaction posted under key.
func (r *WalletTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+walletTransactionColumns+` FROM wallet_transactions WHERE idempotency_key = $1`, key)
	return scanWalletTransaction(row)
}

// GetReversal retrieves the transaction that reverses originalID, if any.
func (r *WalletTransactionRepository) GetReversal(ctx context.Context, tx usecase.Transaction, originalID string) (*domain.WalletTransaction, error) {
	pgTx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	row := pgTx.QueryRow(ctx,
		`SELECT `+walletTransactionColumns+` FROM wallet_transactions WHERE reverses_transaction_id = $1`, originalID)
	return scanWalletTransaction(row)
}

// List returns transactions matching filter, newest first.
func (r *WalletTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error) {
	var w whereBuilder
	if filter.BrandID != "" {
		w.where("brand_id = " + w.arg(filter.BrandID))
	}
	if filter.Principal != nil {
		w.involving(filter.Principal)
	}
	if filter.Type != "" {
		w.where("type = " + w.arg(string(filter.Type)))
	}
	w.between("created_at", filter.StartDate, filter.EndDate)

	query := `SELECT ` + walletTransactionColumns + ` FROM wallet_transactions` + w.String() +
		w.page("created_at DESC, id DESC", filter.Limit, filter.Offset, defaultListLimit)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []*domain.WalletTransaction
	for rows.Next() {
		txn, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanWalletTransaction(row scanner) (*domain.WalletTransaction, error) {
	var (
		t                                domain.WalletTransaction
		fromType, fromID, toType, toID   *string
		amount                           pgtype.Numeric
		prevFrom, newFrom, prevTo, newTo pgtype.Numeric
		txType, role                     string
	)
	err := row.Scan(&t.ID, &t.BrandID, &fromType, &fromID, &toType, &toID, &amount,
		&prevFrom, &newFrom, &prevTo, &newTo, &txType, &t.Description, &t.CreatedByID,
		&role, &t.IdempotencyKey, &t.PayloadHash, &t.ReversesTransactionID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, mapError(err)
	}

	t.From = refFromColumns(fromType, fromID)
	t.To = refFromColumns(toType, toID)
	t.Amount = numericToDecimal(amount)
	t.PreviousBalanceFrom = numericToDecimalPtr(prevFrom)
	t.NewBalanceFrom = numericToDecimalPtr(newFrom)
	t.PreviousBalanceTo = numericToDecimalPtr(prevTo)
	t.NewBalanceTo = numericToDecimalPtr(newTo)
	t.Type = domain.TransactionType(txType)
	t.CreatedByRole = domain.Role(role)
	return &t, nil
}
