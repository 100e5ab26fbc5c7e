package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is on the class.
var (
	ErrValidation        = errors.New("validation error")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRolledBack = errors.New("already rolled back")
	ErrContention        = errors.New("contention, retry later")
	ErrTenantIsolation   = errors.New("tenant isolation violation")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

var (
	// Validation errors
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrMissingIdempotencyKey  = fmt.Errorf("%w: idempotency key is required", ErrValidation)
	ErrInvalidReason          = fmt.Errorf("%w: invalid ledger reason", ErrValidation)
	ErrInvalidTransaction     = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidPrincipal       = fmt.Errorf("%w: invalid principal", ErrValidation)
	ErrSamePrincipal          = fmt.Errorf("%w: cannot transfer to the same principal", ErrValidation)
	ErrNoCounterparty         = fmt.Errorf("%w: at least one of from or to is required", ErrValidation)
	ErrInvalidRole            = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidParent          = fmt.Errorf("%w: parent must be a cashier of the same brand", ErrValidation)
	ErrHierarchyCycle         = fmt.Errorf("%w: cashier hierarchy would contain a cycle", ErrValidation)
	ErrHierarchyTooDeep       = fmt.Errorf("%w: cashier hierarchy too deep", ErrValidation)
	ErrRollbackOfRollback     = fmt.Errorf("%w: a rollback cannot be rolled back", ErrValidation)
	ErrIdempotencyKeyReused   = fmt.Errorf("%w: idempotency key reused with a different payload", ErrValidation)
	ErrReservedIdempotencyKey = fmt.Errorf("%w: idempotency key uses a reserved prefix", ErrValidation)
	ErrBalanceOverflow        = fmt.Errorf("%w: balance would overflow", ErrValidation)
	ErrPrincipalExists        = fmt.Errorf("%w: principal already exists", ErrValidation)

	// Authorization errors
	ErrMintForbidden            = fmt.Errorf("%w: only SUPER_ADMIN may mint funds", ErrForbidden)
	ErrWithdrawalForbidden      = fmt.Errorf("%w: only SUPER_ADMIN may withdraw funds", ErrForbidden)
	ErrOutsideHierarchy         = fmt.Errorf("%w: principal is outside the actor's hierarchy", ErrForbidden)
	ErrTransactionTypeForbidden = fmt.Errorf("%w: role may not perform this operation", ErrForbidden)
	ErrBrandContextRequired     = fmt.Errorf("%w: brand context is required", ErrForbidden)
	ErrBrandInactive            = fmt.Errorf("%w: brand is inactive", ErrForbidden)
	ErrBrandMismatch            = fmt.Errorf("%w: actor does not belong to the requested brand", ErrForbidden)

	// Not found errors
	ErrBrandNotFound       = fmt.Errorf("%w: brand", ErrNotFound)
	ErrPrincipalNotFound   = fmt.Errorf("%w: principal", ErrNotFound)
	ErrPlayerNotFound      = fmt.Errorf("%w: player wallet", ErrNotFound)
	ErrLedgerEntryNotFound = fmt.Errorf("%w: ledger entry", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("%w: wallet transaction", ErrNotFound)

	// Auth token errors
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrExpiredToken = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

// ErrDuplicateIdempotencyKey is returned by stores when a row with the same
// idempotency key already exists. The engines turn it into a replay.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
