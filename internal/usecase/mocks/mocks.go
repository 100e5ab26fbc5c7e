package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// Store is an in-memory implementation of the usecase repositories. Row
// locks, unique keys and commit visibility behave like the database: writes
// become visible on Commit, GetForUpdate blocks while another transaction
// holds the row, and a blocked lock gives up after LockTimeout.
type Store struct {
	mu sync.Mutex

	LockTimeout time.Duration

	brands     map[string]*domain.Brand
	principals map[string]*domain.Principal
	legacy     map[string]*domain.LegacyBalance
	entries    []*domain.LedgerEntry
	entryByRef map[string]*domain.LedgerEntry
	rollbackOf map[int64]*domain.LedgerEntry
	nextEntry  int64
	txns       []*domain.WalletTransaction
	txnByKey   map[string]*domain.WalletTransaction
	reversalOf map[string]*domain.WalletTransaction
	overdrafts []domain.OverdraftAllowance
	audit      []*domain.AuditRecord
	outbox     []*domain.OutboxEvent

	locks    map[string]chan struct{}
	reserved map[string]*Tx

	BeginFunc  func(ctx context.Context) error
	CommitFunc func(ctx context.Context) error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		LockTimeout: 2 * time.Second,
		brands:      make(map[string]*domain.Brand),
		principals:  make(map[string]*domain.Principal),
		legacy:      make(map[string]*domain.LegacyBalance),
		entryByRef:  make(map[string]*domain.LedgerEntry),
		rollbackOf:  make(map[int64]*domain.LedgerEntry),
		txnByKey:    make(map[string]*domain.WalletTransaction),
		reversalOf:  make(map[string]*domain.WalletTransaction),
		locks:       make(map[string]chan struct{}),
		reserved:    make(map[string]*Tx),
	}
}

// AddBrand seeds a brand.
func (s *Store) AddBrand(b domain.Brand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands[b.ID] = &b
}

// AddPrincipal seeds a principal. Players also get an empty legacy balance.
func (s *Store) AddPrincipal(p domain.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.Ref.Key()] = &p
	if p.Ref.Type == domain.PrincipalPlayer {
		if _, ok := s.legacy[p.Ref.ID]; !ok {
			s.legacy[p.Ref.ID] = &domain.LegacyBalance{PlayerID: p.Ref.ID, BrandID: p.BrandID}
		}
	}
}

// AddOverdraft seeds an overdraft allowance.
func (s *Store) AddOverdraft(a domain.OverdraftAllowance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overdrafts = append(s.overdrafts, a)
}

// SetLegacyBalance overwrites a stored legacy balance without a ledger entry.
func (s *Store) SetLegacyBalance(playerID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.legacy[playerID]; ok {
		b.BalanceMinorUnits = balance
	}
}

// Balance returns the committed unified balance of ref.
func (s *Store) Balance(ref domain.PrincipalRef) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.principals[ref.Key()]; ok {
		return p.Balance
	}
	return decimal.Zero
}

// LegacyBalance returns the committed legacy balance of playerID.
func (s *Store) LegacyBalance(playerID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.legacy[playerID]; ok {
		return b.BalanceMinorUnits
	}
	return 0
}

// LedgerEntries returns copies of every committed legacy entry.
func (s *Store) LedgerEntries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// WalletTransactions returns copies of every committed unified transaction.
func (s *Store) WalletTransactions() []domain.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WalletTransaction, 0, len(s.txns))
	for _, t := range s.txns {
		out = append(out, *t)
	}
	return out
}

// AuditRecords returns copies of every committed audit record.
func (s *Store) AuditRecords() []domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditRecord, 0, len(s.audit))
	for _, r := range s.audit {
		out = append(out, *r)
	}
	return out
}

// OutboxEvents returns copies of every committed outbox event.
func (s *Store) OutboxEvents() []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	return out
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{s: s, held: make(map[string]bool), closed: make(chan struct{})}, nil
}

// Tx is a Store transaction.
type Tx struct {
	s        *Store
	held     map[string]bool
	order    []string
	writes   []func()
	reserved []string
	closed   chan struct{}
	done     bool
}

// Commit applies the buffered writes and releases every lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("tx is closed")
	}
	if t.s.CommitFunc != nil {
		if err := t.s.CommitFunc(ctx); err != nil {
			t.finish(false)
			return err
		}
	}

	t.finish(true)
	return nil
}

// Rollback discards the buffered writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.finish(false)
	return nil
}

func (t *Tx) finish(apply bool) {
	t.done = true

	t.s.mu.Lock()
	if apply {
		for _, w := range t.writes {
			w()
		}
	}
	for _, key := range t.reserved {
		if t.s.reserved[key] == t {
			delete(t.s.reserved, key)
		}
	}
	locks := make([]chan struct{}, 0, len(t.order))
	for _, key := range t.order {
		locks = append(locks, t.s.locks[key])
	}
	t.s.mu.Unlock()

	close(t.closed)
	for _, ch := range locks {
		<-ch
	}
	t.writes, t.order, t.held = nil, nil, map[string]bool{}
}

// lock takes the row lock named key, waiting at most LockTimeout.
func (t *Tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}

	t.s.mu.Lock()
	ch, ok := t.s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.s.locks[key] = ch
	}
	t.s.mu.Unlock()

	timer := time.NewTimer(t.s.LockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		t.held[key] = true
		t.order = append(t.order, key)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: lock timeout on %s", domain.ErrContention, key)
	}
}

// claim reserves the unique key for t. Like a unique index it waits for a
// concurrent owner of the same key to finish, and reports false when the key
// is taken by committed data. taken runs with s.mu held.
func (t *Tx) claim(ctx context.Context, key string, taken func() bool) (bool, error) {
	s := t.s
	s.mu.Lock()
	for {
		if taken() {
			s.mu.Unlock()
			return false, nil
		}

		owner, ok := s.reserved[key]
		if !ok {
			s.reserved[key] = t
			t.reserved = append(t.reserved, key)
		}
		if !ok || owner == t {
			s.mu.Unlock()
			return true, nil
		}
		s.mu.Unlock()

		timer := time.NewTimer(s.LockTimeout)
		select {
		case <-owner.closed:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
			return false, fmt.Errorf("%w: lock timeout on %s", domain.ErrContention, key)
		}

		s.mu.Lock()
	}
}

func (t *Tx) buffer(w func()) {
	t.writes = append(t.writes, w)
}

func asTx(tx usecase.Transaction) *Tx {
	t, ok := tx.(*Tx)
	if !ok {
		panic(fmt.Sprintf("mocks: unexpected transaction type %T", tx))
	}
	return t
}

// Brands returns the BrandRepository view.
func (s *Store) Brands() usecase.BrandRepository { return brandRepo{s} }

// Principals returns the PrincipalRepository view.
func (s *Store) Principals() usecase.PrincipalRepository { return principalRepo{s} }

// LegacyBalances returns the LegacyBalanceRepository view.
func (s *Store) LegacyBalances() usecase.LegacyBalanceRepository { return legacyRepo{s} }

// Entries returns the LedgerEntryRepository view.
func (s *Store) Entries() usecase.LedgerEntryRepository { return entryRepo{s} }

// Transactions returns the WalletTransactionRepository view.
func (s *Store) Transactions() usecase.WalletTransactionRepository { return txnRepo{s} }

// Overdrafts returns the OverdraftRepository view.
func (s *Store) Overdrafts() usecase.OverdraftRepository { return overdraftRepo{s} }

// Audit returns the AuditRepository view.
func (s *Store) Audit() usecase.AuditRepository { return auditRepo{s} }

// Outbox returns the OutboxRepository view.
func (s *Store) Outbox() usecase.OutboxRepository { return outboxRepo{s} }

// Reconciliation returns the ReconciliationRepository view.
func (s *Store) Reconciliation() usecase.ReconciliationRepository { return reconciliationRepo{s} }

type brandRepo struct{ s *Store }

func (r brandRepo) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.brands[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrBrandNotFound
}

func (r brandRepo) GetByHostname(ctx context.Context, hostname string) (*domain.Brand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.brands {
		if b.Hostname == hostname {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBrandNotFound
}

type principalRepo struct{ s *Store }

func (r principalRepo) Get(ctx context.Context, ref domain.PrincipalRef) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.principals[ref.Key()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, ref)
}

func (r principalRepo) GetForUpdate(ctx context.Context, tx usecase.Transaction, refs []domain.PrincipalRef) (map[string]*domain.Principal, error) {
	t := asTx(tx)
	for _, ref := range refs {
		if err := t.lock(ctx, "principal:"+ref.Key()); err != nil {
			return nil, err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*domain.Principal, len(refs))
	for _, ref := range refs {
		if p, ok := r.s.principals[ref.Key()]; ok {
			cp := *p
			out[ref.Key()] = &cp
		}
	}
	return out, nil
}

func (r principalRepo) Create(ctx context.Context, tx usecase.Transaction, principal *domain.Principal) error {
	t := asTx(tx)
	key := principal.Ref.Key()

	ok, err := t.claim(ctx, "principal:"+key, func() bool {
		_, exists := r.s.principals[key]
		return exists
	})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPrincipalExists
	}

	cp := *principal
	t.buffer(func() { r.s.principals[key] = &cp })
	return nil
}

func (r principalRepo) UpdateBalance(ctx context.Context, tx usecase.Transaction, ref domain.PrincipalRef, balance decimal.Decimal, updatedAt time.Time) error {
	t := asTx(tx)
	key := ref.Key()

	r.s.mu.Lock()
	_, exists := r.s.principals[key]
	r.s.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrPrincipalNotFound, ref)
	}

	t.buffer(func() {
		p := r.s.principals[key]
		p.Balance = balance
		p.UpdatedAt = updatedAt
	})
	return nil
}

type legacyRepo struct{ s *Store }

func (r legacyRepo) Get(ctx context.Context, playerID string) (*domain.LegacyBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.legacy[playerID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrPlayerNotFound
}

func (r legacyRepo) GetForUpdate(ctx context.Context, tx usecase.Transaction, playerID string) (*domain.LegacyBalance, error) {
	if err := asTx(tx).lock(ctx, "legacy:"+playerID); err != nil {
		return nil, err
	}
	return r.Get(ctx, playerID)
}

func (r legacyRepo) Create(ctx context.Context, tx usecase.Transaction, balance *domain.LegacyBalance) error {
	t := asTx(tx)

	ok, err := t.claim(ctx, "legacy:"+balance.PlayerID, func() bool {
		_, exists := r.s.legacy[balance.PlayerID]
		return exists
	})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPrincipalExists
	}

	cp := *balance
	t.buffer(func() { r.s.legacy[cp.PlayerID] = &cp })
	return nil
}

func (r legacyRepo) UpdateBalance(ctx context.Context, tx usecase.Transaction, playerID string, balance int64, updatedAt time.Time) error {
	t := asTx(tx)

	r.s.mu.Lock()
	_, exists := r.s.legacy[playerID]
	r.s.mu.Unlock()
	if !exists {
		return domain.ErrPlayerNotFound
	}

	t.buffer(func() {
		b := r.s.legacy[playerID]
		b.BalanceMinorUnits = balance
		b.UpdatedAt = updatedAt
	})
	return nil
}

type entryRepo struct{ s *Store }

func (r entryRepo) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t := asTx(tx)

	if entry.RollbackOf != nil {
		id := *entry.RollbackOf
		ok, err := t.claim(ctx, fmt.Sprintf("rollback_of:%d", id), func() bool {
			_, exists := r.s.rollbackOf[id]
			return exists
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyRolledBack
		}
	}
	if entry.ExternalRef != nil {
		ref := *entry.ExternalRef
		ok, err := t.claim(ctx, "external_ref:"+ref, func() bool {
			_, exists := r.s.entryByRef[ref]
			return exists
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrDuplicateIdempotencyKey
		}
	}

	r.s.mu.Lock()
	r.s.nextEntry++
	entry.ID = r.s.nextEntry
	r.s.mu.Unlock()

	cp := *entry
	t.buffer(func() {
		r.s.entries = append(r.s.entries, &cp)
		if cp.ExternalRef != nil {
			r.s.entryByRef[*cp.ExternalRef] = &cp
		}
		if cp.RollbackOf != nil {
			r.s.rollbackOf[*cp.RollbackOf] = &cp
		}
	})
	return nil
}

func (r entryRepo) GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.entryByRef[externalRef]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrLedgerEntryNotFound
}

func (r entryRepo) GetRollbackOf(ctx context.Context, tx usecase.Transaction, entryID int64) (*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.rollbackOf[entryID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrLedgerEntryNotFound
}

type txnRepo struct{ s *Store }

func (r txnRepo) Create(ctx context.Context, tx usecase.Transaction, txn *domain.WalletTransaction) error {
	t := asTx(tx)

	if txn.ReversesTransactionID != nil {
		id := *txn.ReversesTransactionID
		ok, err := t.claim(ctx, "reverses:"+id, func() bool {
			_, exists := r.s.reversalOf[id]
			return exists
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyRolledBack
		}
	}

	key := txn.IdempotencyKey
	ok, err := t.claim(ctx, "idempotency_key:"+key, func() bool {
		_, exists := r.s.txnByKey[key]
		return exists
	})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDuplicateIdempotencyKey
	}

	cp := *txn
	t.buffer(func() {
		r.s.txns = append(r.s.txns, &cp)
		r.s.txnByKey[cp.IdempotencyKey] = &cp
		if cp.ReversesTransactionID != nil {
			r.s.reversalOf[*cp.ReversesTransactionID] = &cp
		}
	})
	return nil
}

func (r txnRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if txn, ok := r.s.txnByKey[key]; ok {
		cp := *txn
		return &cp, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (r txnRepo) GetReversal(ctx context.Context, tx usecase.Transaction, originalID string) (*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if txn, ok := r.s.reversalOf[originalID]; ok {
		cp := *txn
		return &cp, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (r txnRepo) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.WalletTransaction
	skipped := 0
	for i := len(r.s.txns) - 1; i >= 0; i-- {
		txn := r.s.txns[i]
		if filter.BrandID != "" && txn.BrandID != filter.BrandID {
			continue
		}
		if filter.Principal != nil && !involves(filter.Principal, txn.From, txn.To) {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if !inRange(txn.CreatedAt, filter.StartDate, filter.EndDate) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		cp := *txn
		out = append(out, &cp)
	}
	return out, nil
}

type overdraftRepo struct{ s *Store }

func (r overdraftRepo) AllowsNegative(ctx context.Context, tx usecase.Transaction, brandID string, from domain.PrincipalRef, to *domain.PrincipalRef) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.overdrafts {
		if a.BrandID != brandID || a.From.Key() != from.Key() {
			continue
		}
		if a.To == nil || (to != nil && a.To.Key() == to.Key()) {
			return true, nil
		}
	}
	return false, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) CreateTx(ctx context.Context, tx usecase.Transaction, record *domain.AuditRecord) error {
	cp := *record
	asTx(tx).buffer(func() { r.s.audit = append(r.s.audit, &cp) })
	return nil
}

func (r auditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.AuditRecord
	skipped := 0
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		rec := r.s.audit[i]
		if filter.BrandID != "" && rec.BrandID != filter.BrandID {
			continue
		}
		if filter.Principal != nil && !involves(filter.Principal, rec.From, rec.To) {
			continue
		}
		if filter.Operation != "" && rec.Operation != filter.Operation {
			continue
		}
		if filter.Ledger != "" && rec.Ledger != filter.Ledger {
			continue
		}
		if !inRange(rec.CreatedAt, filter.StartDate, filter.EndDate) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	cp := *event
	asTx(tx).buffer(func() { r.s.outbox = append(r.s.outbox, &cp) })
	return nil
}

func (r outboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Published {
			continue
		}
		if len(out) >= limit {
			break
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r outboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("%w: outbox event %s", domain.ErrNotFound, id)
}

type reconciliationRepo struct{ s *Store }

func (r reconciliationRepo) LegacyDiscrepancies(ctx context.Context) (int, []domain.LegacyDiscrepancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sums := make(map[string]int64)
	for _, e := range r.s.entries {
		sums[e.PlayerID] += e.DeltaMinorUnits
	}

	var found []domain.LegacyDiscrepancy
	for id, b := range r.s.legacy {
		if sums[id] != b.BalanceMinorUnits {
			found = append(found, domain.LegacyDiscrepancy{
				PlayerID:   id,
				BrandID:    b.BrandID,
				Recorded:   b.BalanceMinorUnits,
				Calculated: sums[id],
			})
		}
	}
	return len(r.s.legacy), found, nil
}

func (r reconciliationRepo) UnifiedDiscrepancies(ctx context.Context) (int, []domain.UnifiedDiscrepancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sums := make(map[string]decimal.Decimal)
	for _, t := range r.s.txns {
		if t.From != nil {
			sums[t.From.Key()] = sums[t.From.Key()].Sub(t.Amount)
		}
		if t.To != nil {
			sums[t.To.Key()] = sums[t.To.Key()].Add(t.Amount)
		}
	}

	var found []domain.UnifiedDiscrepancy
	for key, p := range r.s.principals {
		if !sums[key].Equal(p.Balance) {
			found = append(found, domain.UnifiedDiscrepancy{
				Principal:  p.Ref,
				BrandID:    p.BrandID,
				Recorded:   p.Balance,
				Calculated: sums[key],
			})
		}
	}
	return len(r.s.principals), found, nil
}

func involves(want, from, to *domain.PrincipalRef) bool {
	return (from != nil && from.Key() == want.Key()) || (to != nil && to.Key() == want.Key())
}

func inRange(at time.Time, start, end *time.Time) bool {
	if start != nil && at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}

// SequentialIDGenerator generates predictable, unique IDs.
type SequentialIDGenerator struct {
	n atomic.Int64
}

// NewSequentialIDGenerator creates a new SequentialIDGenerator.
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("id-%08d", g.n.Add(1))
}

// Retrier retries operations that fail with domain.ErrContention.
type Retrier struct {
	MaxAttempts int
	attempts    atomic.Int64
}

func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	limit := r.MaxAttempts
	if limit < 1 {
		limit = 1
	}

	for i := 1; ; i++ {
		r.attempts.Add(1)
		err := operation()
		if err == nil || !errors.Is(err, domain.ErrContention) || i >= limit {
			return err
		}
	}
}

// Attempts reports how many times an operation was run.
func (r *Retrier) Attempts() int64 {
	return r.attempts.Load()
}

// MemoryIdempotencyStore is an in-memory usecase.IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, bool, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{data: make(map[string][]byte)}
}

func (m *MemoryIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryIdempotencyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Len reports how many keys are cached.
func (m *MemoryIdempotencyStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
