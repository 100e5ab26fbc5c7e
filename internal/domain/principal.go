package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PrincipalType discriminates the principal variants.
type PrincipalType string

const (
	PrincipalPlayer     PrincipalType = "player"
	PrincipalBackoffice PrincipalType = "backoffice"
)

// IsValid checks if the principal type is known.
func (t PrincipalType) IsValid() bool {
	return t == PrincipalPlayer || t == PrincipalBackoffice
}

// PrincipalRef identifies any entity that can hold a unified balance.
type PrincipalRef struct {
	Type PrincipalType `json:"type"`
	ID   string        `json:"id"`
}

// Key is the stable "type:id" form used for lock ordering and indexing.
func (p PrincipalRef) Key() string {
	return string(p.Type) + ":" + p.ID
}

func (p PrincipalRef) String() string {
	return p.Key()
}

// Validate checks the reference is well formed.
func (p PrincipalRef) Validate() error {
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPrincipal, p.Type)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPrincipal)
	}
	return nil
}

// ParsePrincipalRef parses the "type:id" form.
func ParsePrincipalRef(s string) (PrincipalRef, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok {
		return PrincipalRef{}, fmt.Errorf("%w: expected type:id, got %q", ErrInvalidPrincipal, s)
	}
	ref := PrincipalRef{Type: PrincipalType(typ), ID: id}
	return ref, ref.Validate()
}

// Principal is a player or backoffice user together with its unified balance.
type Principal struct {
	Ref             PrincipalRef
	BrandID         string
	Username        string
	Role            Role // empty for players
	ParentCashierID *string
	Balance         decimal.Decimal
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsCashier reports whether the principal is a backoffice cashier.
func (p *Principal) IsCashier() bool {
	return p.Ref.Type == PrincipalBackoffice && p.Role == RoleCashier
}

// ValidateDebit checks if the principal can be debited by amount.
func (p *Principal) ValidateDebit(amount decimal.Decimal, allowNegative bool) error {
	newBalance := p.Balance.Sub(amount)
	if !allowNegative && newBalance.IsNegative() {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, p.Ref, p.Balance, amount)
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (p *Principal) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return p.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (p *Principal) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return p.Balance.Add(amount)
}
