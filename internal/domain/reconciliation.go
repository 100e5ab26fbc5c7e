package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegacyDiscrepancy is a player whose stored balance differs from its ledger.
type LegacyDiscrepancy struct {
	PlayerID   string `json:"player_id"`
	BrandID    string `json:"brand_id"`
	Recorded   int64  `json:"recorded"`
	Calculated int64  `json:"calculated"`
}

// UnifiedDiscrepancy is a principal whose stored balance differs from its transactions.
type UnifiedDiscrepancy struct {
	Principal  PrincipalRef    `json:"principal"`
	BrandID    string          `json:"brand_id"`
	Recorded   decimal.Decimal `json:"recorded"`
	Calculated decimal.Decimal `json:"calculated"`
}

// ReconciliationReport summarises a consistency check across both ledgers.
type ReconciliationReport struct {
	CheckedAt      time.Time
	LegacyChecked  int
	UnifiedChecked int
	Legacy         []LegacyDiscrepancy
	Unified        []UnifiedDiscrepancy
}

// IsBalanced reports whether no discrepancy was found.
func (r *ReconciliationReport) IsBalanced() bool {
	return len(r.Legacy) == 0 && len(r.Unified) == 0
}
