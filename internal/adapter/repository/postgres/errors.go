package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/casinowallet/internal/domain"
)

// PostgreSQL error codes the repositories translate.
const (
	pgErrUniqueViolation      = "23505"
	pgErrCheckViolation       = "23514"
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// Unique constraints with a domain meaning.
var uniqueConstraintErrors = map[string]error{
	"ledger_entries_external_ref_key":         domain.ErrDuplicateIdempotencyKey,
	"ledger_entries_rollback_of_key":          domain.ErrAlreadyRolledBack,
	"wallet_transactions_idempotency_key_key": domain.ErrDuplicateIdempotencyKey,
	"wallet_transactions_reverses_key":        domain.ErrAlreadyRolledBack,
	"principals_pkey":                         domain.ErrPrincipalExists,
	"legacy_balances_pkey":                    domain.ErrPrincipalExists,
}

// mapError translates driver errors into domain error classes. Errors it
// does not recognise are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		if mapped, ok := uniqueConstraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
	case pgErrCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
	case pgErrLockNotAvailable, pgErrDeadlock, pgErrSerializationFailure:
		return fmt.Errorf("%w: %w", domain.ErrContention, err)
	}
	return err
}
