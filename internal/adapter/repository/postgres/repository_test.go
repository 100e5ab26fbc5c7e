package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
)

var principalCols = []string{
	"principal_type", "id", "brand_id", "username", "role", "parent_cashier_id",
	"balance", "is_active", "created_at", "updated_at",
}

var walletTransactionCols = []string{
	"id", "brand_id", "from_type", "from_id", "to_type", "to_id", "amount",
	"previous_balance_from", "new_balance_from", "previous_balance_to", "new_balance_to",
	"type", "description", "created_by_id", "created_by_role", "idempotency_key",
	"payload_hash", "reverses_transaction_id", "created_at",
}

func strPtr(s string) *string { return &s }

func TestPrincipalGetForUpdateLocksInOrder(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &PrincipalRepository{db: pool}
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM principals WHERE principal_type = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("backoffice", "c1").
		WillReturnRows(pgxmock.NewRows(principalCols).
			AddRow("backoffice", "c1", "brand-a", "desk", "CASHIER", (*string)(nil), "150.25", true, now, now))
	pool.ExpectQuery(`FROM principals WHERE principal_type = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("player", "ghost").
		WillReturnRows(pgxmock.NewRows(principalCols))

	refs := []domain.PrincipalRef{
		{Type: domain.PrincipalBackoffice, ID: "c1"},
		{Type: domain.PrincipalPlayer, ID: "ghost"},
	}
	got, err := repo.GetForUpdate(context.Background(), tx, refs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 locked principal, got %d", len(got))
	}
	c1 := got["backoffice:c1"]
	if c1 == nil || !c1.IsCashier() {
		t.Fatalf("expected cashier c1, got %+v", c1)
	}
	if !c1.Balance.Equal(decimal.RequireFromString("150.25")) {
		t.Fatalf("expected balance 150.25, got %s", c1.Balance)
	}
	if c1.ParentCashierID != nil {
		t.Fatalf("expected no parent, got %v", *c1.ParentCashierID)
	}

	assertExpectations(t, pool)
}

func TestPrincipalGetNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := &PrincipalRepository{db: pool}

	pool.ExpectQuery(`FROM principals WHERE principal_type = \$1 AND id = \$2`).
		WithArgs("player", "p9").
		WillReturnRows(pgxmock.NewRows(principalCols))

	_, err := repo.Get(context.Background(), domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p9"})
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected principal not found, got %v", err)
	}
}

func TestPrincipalCreateDuplicate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &PrincipalRepository{db: pool}

	pool.ExpectExec(`INSERT INTO principals`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "principals_pkey"})

	err := repo.Create(context.Background(), tx, &domain.Principal{
		Ref:     domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"},
		BrandID: "brand-a",
	})
	if !errors.Is(err, domain.ErrPrincipalExists) {
		t.Fatalf("expected principal exists, got %v", err)
	}
}

func TestPrincipalUpdateBalanceMissingRow(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &PrincipalRepository{db: pool}

	pool.ExpectExec(`UPDATE principals SET balance`).
		WithArgs("player", "p1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateBalance(context.Background(), tx, domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}, decimal.NewFromInt(5), time.Now())
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected principal not found, got %v", err)
	}
}

func TestLegacyBalanceGetForUpdate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &LegacyBalanceRepository{db: pool}
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM legacy_balances WHERE player_id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"player_id", "brand_id", "balance_minor_units", "updated_at"}).
			AddRow("p1", "brand-a", int64(1000), now))

	b, err := repo.GetForUpdate(context.Background(), tx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.BalanceMinorUnits != 1000 || b.BrandID != "brand-a" {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func TestLegacyBalanceGetNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := &LegacyBalanceRepository{db: pool}

	pool.ExpectQuery(`FROM legacy_balances WHERE player_id = \$1`).
		WithArgs("p9").
		WillReturnRows(pgxmock.NewRows([]string{"player_id", "brand_id", "balance_minor_units", "updated_at"}))

	if _, err := repo.Get(context.Background(), "p9"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player not found, got %v", err)
	}
}

func TestLedgerEntryCreate(t *testing.T) {
	entry := func() *domain.LedgerEntry {
		return &domain.LedgerEntry{
			PlayerID:        "p1",
			BrandID:         "brand-a",
			DeltaMinorUnits: -100,
			Reason:          domain.ReasonBet,
			ExternalRef:     strPtr("bet-1"),
			BalanceBefore:   1000,
			BalanceAfter:    900,
			ActorID:         "slots",
			ActorRole:       domain.RoleGameProvider,
			CreatedAt:       time.Now().UTC(),
		}
	}

	t.Run("assigns id", func(t *testing.T) {
		pool := newMockPool(t)
		tx := beginTx(t, pool)
		repo := &LedgerEntryRepository{db: pool}

		pool.ExpectQuery(`INSERT INTO ledger_entries`).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		e := entry()
		if err := repo.Create(context.Background(), tx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.ID != 42 {
			t.Fatalf("expected id 42, got %d", e.ID)
		}
	})

	tests := []struct {
		constraint string
		want       error
	}{
		{"ledger_entries_external_ref_key", domain.ErrDuplicateIdempotencyKey},
		{"ledger_entries_rollback_of_key", domain.ErrAlreadyRolledBack},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			pool := newMockPool(t)
			tx := beginTx(t, pool)
			repo := &LedgerEntryRepository{db: pool}

			pool.ExpectQuery(`INSERT INTO ledger_entries`).
				WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: tt.constraint})

			if err := repo.Create(context.Background(), tx, entry()); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLedgerEntryGetByExternalRefNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := &LedgerEntryRepository{db: pool}

	pool.ExpectQuery(`FROM ledger_entries WHERE external_ref = \$1`).
		WithArgs("bet-9").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.GetByExternalRef(context.Background(), "bet-9"); !errors.Is(err, domain.ErrLedgerEntryNotFound) {
		t.Fatalf("expected ledger entry not found, got %v", err)
	}
}

func TestWalletTransactionCreateDuplicates(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"wallet_transactions_idempotency_key_key", domain.ErrDuplicateIdempotencyKey},
		{"wallet_transactions_reverses_key", domain.ErrAlreadyRolledBack},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			pool := newMockPool(t)
			tx := beginTx(t, pool)
			repo := &WalletTransactionRepository{db: pool}

			pool.ExpectExec(`INSERT INTO wallet_transactions`).
				WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: tt.constraint})

			to := domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}
			err := repo.Create(context.Background(), tx, &domain.WalletTransaction{
				ID:             "t1",
				BrandID:        "brand-a",
				To:             &to,
				Amount:         decimal.NewFromInt(10),
				Type:           domain.TransactionMint,
				IdempotencyKey: "k1",
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWalletTransactionListFilters(t *testing.T) {
	pool := newMockPool(t)
	repo := &WalletTransactionRepository{db: pool}
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM wallet_transactions WHERE brand_id = \$1 AND \(\(from_type = \$2 AND from_id = \$3\) OR \(to_type = \$2 AND to_id = \$3\)\) AND type = \$4 ORDER BY created_at DESC, id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("brand-a", "player", "p1", "TRANSFER", 10, 20).
		WillReturnRows(pgxmock.NewRows(walletTransactionCols).AddRow(
			"t1", "brand-a", strPtr("backoffice"), strPtr("c1"), strPtr("player"), strPtr("p1"), "10.5",
			"100", "89.5", "0", "10.5",
			"TRANSFER", "", "c1", "CASHIER", "k1",
			"hash", (*string)(nil), now,
		))

	p1 := domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}
	txns, err := repo.List(context.Background(), domain.TransactionFilter{
		BrandID:   "brand-a",
		Principal: &p1,
		Type:      domain.TransactionTransfer,
		Limit:     10,
		Offset:    20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}

	got := txns[0]
	if got.From == nil || got.From.Key() != "backoffice:c1" || got.To == nil || got.To.Key() != "player:p1" {
		t.Fatalf("unexpected parties from=%v to=%v", got.From, got.To)
	}
	if !got.Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("expected amount 10.5, got %s", got.Amount)
	}
	if err := got.CheckSnapshots(); err != nil {
		t.Fatalf("snapshots do not balance: %v", err)
	}
	if got.ReversesTransactionID != nil {
		t.Fatalf("expected no reversal link")
	}

	assertExpectations(t, pool)
}

func TestWalletTransactionListDefaultLimit(t *testing.T) {
	pool := newMockPool(t)
	repo := &WalletTransactionRepository{db: pool}

	pool.ExpectQuery(`FROM wallet_transactions ORDER BY created_at DESC, id DESC LIMIT \$1$`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(walletTransactionCols))

	txns, err := repo.List(context.Background(), domain.TransactionFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
}

func TestAuditListNumbersArguments(t *testing.T) {
	pool := newMockPool(t)
	repo := &AuditRepository{db: pool}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	pool.ExpectQuery(`FROM audit_records WHERE brand_id = \$1 AND operation = \$2 AND ledger = \$3 AND created_at >= \$4 ORDER BY created_at DESC, id DESC LIMIT \$5`).
		WithArgs("brand-a", "BET", "legacy", start, 5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "brand_id", "ledger", "actor_id", "actor_role", "from_type", "from_id", "to_type", "to_id",
			"from_before", "from_after", "to_before", "to_after", "amount", "operation", "idempotency_key",
			"reference_id", "created_at",
		}).AddRow(
			"a1", "brand-a", "legacy", "slots", "GAME_PROVIDER", strPtr("player"), strPtr("p1"), (*string)(nil), (*string)(nil),
			"1000", "900", nil, nil, "100", "BET", "bet-1",
			"7", start,
		))

	records, err := repo.List(context.Background(), domain.AuditFilter{
		BrandID:   "brand-a",
		Operation: "BET",
		Ledger:    domain.LedgerLegacy,
		StartDate: &start,
		Limit:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.From == nil || rec.From.ID != "p1" || rec.To != nil {
		t.Fatalf("unexpected parties from=%v to=%v", rec.From, rec.To)
	}
	if rec.FromAfter == nil || !rec.FromAfter.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected from after 900, got %v", rec.FromAfter)
	}
	if rec.ToBefore != nil {
		t.Fatalf("expected no to snapshot")
	}

	assertExpectations(t, pool)
}

func TestOverdraftAllowsNegative(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &OverdraftRepository{db: pool}

	pool.ExpectQuery(`FROM overdraft_allowances`).
		WithArgs("brand-a", "backoffice", "c1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	p1 := domain.PrincipalRef{Type: domain.PrincipalPlayer, ID: "p1"}
	ok, err := repo.AllowsNegative(context.Background(), tx, "brand-a", domain.PrincipalRef{Type: domain.PrincipalBackoffice, ID: "c1"}, &p1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected allowance")
	}
}

func TestOutboxMarkPublishedMissing(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}

	pool.ExpectExec(`UPDATE outbox_events SET published = TRUE`).
		WithArgs("e1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.MarkPublished(context.Background(), "e1", time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOutboxGetUnpublished(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM outbox_events WHERE NOT published`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published",
		}).AddRow("e1", "t1", domain.AggregateTypeWalletTransaction, domain.EventTypeWalletTransactionPosted,
			[]byte(`{"amount":"10"}`), now, nil, false))

	events, err := repo.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Payload["amount"] != "10" || events[0].PublishedAt != nil {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestReconciliationUnifiedDiscrepancies(t *testing.T) {
	pool := newMockPool(t)
	repo := &ReconciliationRepository{db: pool}

	pool.ExpectQuery(`SELECT count\(\*\) FROM principals`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	pool.ExpectQuery(`WITH movements AS`).
		WillReturnRows(pgxmock.NewRows([]string{"principal_type", "id", "brand_id", "balance", "calculated"}).
			AddRow("player", "p1", "brand-a", "10", "9.5"))

	checked, found, err := repo.UnifiedDiscrepancies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checked != 3 || len(found) != 1 {
		t.Fatalf("expected 3 checked and 1 found, got %d and %d", checked, len(found))
	}
	if found[0].Principal.Key() != "player:p1" || !found[0].Calculated.Equal(decimal.RequireFromString("9.5")) {
		t.Fatalf("unexpected discrepancy %+v", found[0])
	}
}

func TestReconciliationLegacyCountError(t *testing.T) {
	pool := newMockPool(t)
	repo := &ReconciliationRepository{db: pool}

	pool.ExpectQuery(`SELECT count\(\*\) FROM legacy_balances`).
		WillReturnError(errors.New("connection reset"))

	if _, _, err := repo.LegacyDiscrepancies(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique external ref", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "ledger_entries_external_ref_key"}, domain.ErrDuplicateIdempotencyKey},
		{"unique legacy wallet", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "legacy_balances_pkey"}, domain.ErrPrincipalExists},
		{"check violation", &pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: "legacy_balances_balance_minor_units_check"}, domain.ErrValidation},
		{"lock timeout", &pgconn.PgError{Code: pgErrLockNotAvailable}, domain.ErrContention},
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlock}, domain.ErrContention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if mapError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}

	other := &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "brands_hostname_key"}
	if got := mapError(other); got != error(other) {
		t.Fatalf("expected unknown constraint to pass through, got %v", got)
	}
}
