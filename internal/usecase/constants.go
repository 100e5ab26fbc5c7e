package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long committed outcomes are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// MaxHierarchyDepth bounds every walk of the parent-cashier chain.
	MaxHierarchyDepth = 32
)
