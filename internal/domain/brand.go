package domain

import "time"

// Brand is the tenant boundary.
type Brand struct {
	ID        string
	Name      string
	Hostname  string
	IsActive  bool
	CreatedAt time.Time
}

// BrandScope is the brand context a caller asks an operation to run in.
// Global without a BrandID is only honoured for SUPER_ADMIN.
type BrandScope struct {
	BrandID string
	Global  bool
}

// Scope is the resolved brand context of an operation.
type Scope struct {
	BrandID string // empty only when Global
	Global  bool
}

// Allows reports whether a row owned by brandID is visible in the scope.
func (s Scope) Allows(brandID string) bool {
	return (s.Global && s.BrandID == "") || s.BrandID == brandID
}
