package domain

// Role represents an actor's privilege level.
type Role string

const (
	// RoleSuperAdmin is unrestricted and may mint or withdraw funds.
	RoleSuperAdmin Role = "SUPER_ADMIN"

	// RoleOperatorAdmin manages a single brand.
	RoleOperatorAdmin Role = "OPERATOR_ADMIN"

	// RoleBrandAdmin is an alias of RoleOperatorAdmin.
	RoleBrandAdmin Role = "BRAND_ADMIN"

	// RoleCashier acts only on its own subordinate hierarchy.
	RoleCashier Role = "CASHIER"

	// RoleGameProvider is the service identity used by game gateway adapters.
	RoleGameProvider Role = "GAME_PROVIDER"
)

var validRoles = map[Role]bool{
	RoleSuperAdmin:    true,
	RoleOperatorAdmin: true,
	RoleBrandAdmin:    true,
	RoleCashier:       true,
	RoleGameProvider:  true,
}

// unified transaction types each role may create
var roleTransactionTypes = map[Role]map[TransactionType]bool{
	RoleOperatorAdmin: {
		TransactionTransfer:   true,
		TransactionDeposit:    true,
		TransactionBonus:      true,
		TransactionAdjustment: true,
		TransactionBet:        true,
		TransactionWin:        true,
		TransactionRollback:   true,
	},
	RoleCashier: {
		TransactionTransfer: true,
		TransactionDeposit:  true,
	},
	RoleGameProvider: {
		TransactionBet: true,
		TransactionWin: true,
	},
}

// legacy ledger reasons each role may post
var roleLedgerReasons = map[Role]map[LedgerReason]bool{
	RoleCashier: {
		ReasonAdminGrant: true,
		ReasonAdminDebit: true,
	},
	RoleGameProvider: {
		ReasonBet:    true,
		ReasonWin:    true,
		ReasonBonus:  true,
		ReasonRefund: true,
	},
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Normalize folds aliases onto their canonical role.
func (r Role) Normalize() Role {
	if r == RoleBrandAdmin {
		return RoleOperatorAdmin
	}
	return r
}

// IsBackoffice reports whether the role belongs to a backoffice user.
func (r Role) IsBackoffice() bool {
	switch r.Normalize() {
	case RoleSuperAdmin, RoleOperatorAdmin, RoleCashier:
		return true
	}
	return false
}

// CanMint checks if the role may create funds.
func (r Role) CanMint() bool {
	return r == RoleSuperAdmin
}

// CanWithdraw checks if the role may destroy funds.
func (r Role) CanWithdraw() bool {
	return r == RoleSuperAdmin
}

// CanActGlobally checks if the role may operate without a brand.
func (r Role) CanActGlobally() bool {
	return r == RoleSuperAdmin
}

// CanCreateTransaction checks if the role may create a unified transaction of type t.
func (r Role) CanCreateTransaction(t TransactionType) bool {
	if r == RoleSuperAdmin {
		return true
	}
	return roleTransactionTypes[r.Normalize()][t]
}

// CanPostLedger checks if the role may post a legacy entry with the given reason.
func (r Role) CanPostLedger(reason LedgerReason) bool {
	switch r.Normalize() {
	case RoleSuperAdmin, RoleOperatorAdmin:
		return reason != ReasonRollback
	}
	return roleLedgerReasons[r][reason]
}

// CanRollbackLedger checks if the role may roll back legacy entries.
func (r Role) CanRollbackLedger() bool {
	switch r.Normalize() {
	case RoleSuperAdmin, RoleOperatorAdmin, RoleGameProvider:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID      string
	Role    Role
	BrandID string
}

// Validate checks that the actor descriptor is usable.
func (a Actor) Validate() error {
	if a.ID == "" {
		return ErrUnauthenticated
	}
	if !a.Role.IsValid() {
		return ErrInvalidRole
	}
	if a.Role != RoleSuperAdmin && a.BrandID == "" {
		return ErrBrandContextRequired
	}
	return nil
}

// Principal returns the backoffice principal the actor acts as, if any.
func (a Actor) Principal() (PrincipalRef, bool) {
	if !a.Role.IsBackoffice() {
		return PrincipalRef{}, false
	}
	return PrincipalRef{Type: PrincipalBackoffice, ID: a.ID}, true
}
