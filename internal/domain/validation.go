package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxTransferAmount     = "1000000000000" // 1 trillion
	MinTransferAmount     = "0.00000001" // one unit of the stored scale
	MaxMinorUnits         = int64(100_000_000_000_000)
	MaxIdempotencyKeySize = 255
	MaxDescriptionLength  = 1024

	// AmountScale is the number of decimal places balances are stored with.
	AmountScale = 8
)

// ValidateAmount validates a unified ledger amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount, _ := decimal.NewFromString(MinTransferAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinTransferAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransferAmount)
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most 8 decimal places", ErrInvalidAmount)
	}

	return nil
}

// ValidateMinorUnits validates a legacy ledger amount.
func ValidateMinorUnits(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if amount > MaxMinorUnits {
		return fmt.Errorf("%w: maximum amount is %d minor units", ErrInvalidAmount, MaxMinorUnits)
	}

	return nil
}

// ValidateIdempotencyKey rejects empty and oversized keys.
func ValidateIdempotencyKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrMissingIdempotencyKey
	}

	if len(key) > MaxIdempotencyKeySize {
		return fmt.Errorf("%w: idempotency key exceeds %d characters", ErrValidation, MaxIdempotencyKeySize)
	}

	return nil
}

// ValidateCallerKey validates a key supplied by a caller. Prefixes reserved
// for rollback and opening-balance rows are rejected.
func ValidateCallerKey(key string) error {
	if err := ValidateIdempotencyKey(key); err != nil {
		return err
	}

	for _, prefix := range []string{RollbackKeyPrefix, OpeningKeyPrefix} {
		if strings.HasPrefix(key, prefix) {
			return fmt.Errorf("%w: %q", ErrReservedIdempotencyKey, prefix)
		}
	}

	return nil
}

// ClampPagination applies the default page size and bounds limit and offset.
func ClampPagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// ValidateDateRange rejects a range whose end precedes its start.
func ValidateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	return nil
}
