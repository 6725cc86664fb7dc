package fifo

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store for exercising the ledger without a
// database. tamper, when set, runs after each snapshot read and can move
// balances the way a concurrently committing request would.
type memStore struct {
	mu        sync.Mutex
	lots      map[uint]*Lot
	issuances []*Issuance
	lines     [][]IssuanceLine
	tamper    func(s *memStore)
}

func newMemStore(lots ...Lot) *memStore {
	s := &memStore{lots: make(map[uint]*Lot, len(lots))}
	for i := range lots {
		lot := lots[i]
		s.lots[lot.ID] = &lot
	}
	return s
}

func (s *memStore) ListOpenLots(_ context.Context, _ uint) ([]Lot, error) {
	s.mu.Lock()
	var open []Lot
	for _, lot := range s.lots {
		if lot.Remaining.IsPositive() {
			open = append(open, *lot)
		}
	}
	tamper := s.tamper
	s.mu.Unlock()

	if tamper != nil {
		tamper(s)
	}
	return open, nil
}

func (s *memStore) Atomically(_ context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, staged: make(map[uint]decimal.Decimal)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, remaining := range tx.staged {
		s.lots[id].Remaining = remaining
	}
	if tx.header != nil {
		tx.header.ID = uint(len(s.issuances) + 1)
		s.issuances = append(s.issuances, tx.header)
		s.lines = append(s.lines, tx.lines)
	}
	return nil
}

type memTx struct {
	s      *memStore
	staged map[uint]decimal.Decimal
	header *Issuance
	lines  []IssuanceLine
}

func (t *memTx) ApplyConsumption(lotID uint, expectedRemaining, takeQty decimal.Decimal) error {
	lot, ok := t.s.lots[lotID]
	if !ok {
		return ErrStoreUnavailable
	}
	current := lot.Remaining
	if staged, ok := t.staged[lotID]; ok {
		current = staged
	}
	if !current.Equal(expectedRemaining) {
		return ErrConcurrentModification
	}
	t.staged[lotID] = current.Sub(takeQty)
	return nil
}

func (t *memTx) RecordIssuance(header *Issuance, lines []IssuanceLine) error {
	t.header = header
	t.lines = lines
	return nil
}

func (s *memStore) remaining(lotID uint) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lots[lotID].Remaining
}

func TestPreviewIsSideEffectFreeAndIdempotent(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)
	ctx := context.Background()

	first, err := ledger.Preview(ctx, 7, d("30"))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	second, err := ledger.Preview(ctx, 7, d("30"))
	if err != nil {
		t.Fatalf("Preview again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("previews over unchanged lots differ:\n%+v\n%+v", first, second)
	}
	if !store.remaining(1).Equal(d("20")) || !store.remaining(4).Equal(d("80")) {
		t.Errorf("preview mutated lot balances")
	}
	if len(store.issuances) != 0 {
		t.Errorf("preview recorded an issuance")
	}
}

func TestCommitDecrementsLotsAndRecordsIssuance(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)

	issuance, lines, err := ledger.Commit(context.Background(), 7, d("30"), "ISS/2025/001", day("2025-08-20"))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if !store.remaining(1).Equal(d("0")) {
		t.Errorf("lot 1 remaining = %s, want 0", store.remaining(1))
	}
	if !store.remaining(4).Equal(d("70")) {
		t.Errorf("lot 4 remaining = %s, want 70", store.remaining(4))
	}

	if issuance.ID == 0 {
		t.Errorf("issuance ID not assigned")
	}
	if !issuance.TotalAmount.Equal(d("10600")) || !issuance.WeightedRate.Equal(d("353.33")) {
		t.Errorf("issuance totals = %s @ %s, want 10600 @ 353.33", issuance.TotalAmount, issuance.WeightedRate)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	sumQty, sumAmount := decimal.Zero, decimal.Zero
	for _, ln := range lines {
		sumQty = sumQty.Add(ln.Quantity)
		sumAmount = sumAmount.Add(ln.Amount)
	}
	if !sumQty.Equal(issuance.TotalQuantity) {
		t.Errorf("sum of line quantities %s != total %s", sumQty, issuance.TotalQuantity)
	}
	if !sumAmount.Equal(issuance.TotalAmount) {
		t.Errorf("sum of line amounts %s != total %s", sumAmount, issuance.TotalAmount)
	}
}

func TestCommitIsAllOrNothingOnShortfall(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)

	_, _, err := ledger.Commit(context.Background(), 7, d("150"), "ISS/2025/002", day("2025-08-20"))
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !store.remaining(1).Equal(d("20")) || !store.remaining(4).Equal(d("80")) {
		t.Errorf("failed commit left partial decrements")
	}
	if len(store.issuances) != 0 {
		t.Errorf("failed commit recorded an issuance")
	}
}

func TestCumulativeCommits(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)
	ctx := context.Background()

	if _, _, err := ledger.Commit(ctx, 7, d("15"), "ISS/2025/003", day("2025-08-20")); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if _, _, err := ledger.Commit(ctx, 7, d("15"), "ISS/2025/004", day("2025-08-21")); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	// 20 - 15 - 5 on the older lot, then 10 off the younger one.
	if !store.remaining(1).Equal(d("0")) {
		t.Errorf("lot 1 remaining = %s, want 0", store.remaining(1))
	}
	if !store.remaining(4).Equal(d("70")) {
		t.Errorf("lot 4 remaining = %s, want 70", store.remaining(4))
	}
	if len(store.issuances) != 2 {
		t.Errorf("expected 2 issuances, got %d", len(store.issuances))
	}
}

func TestCommitConflictIsDetectedWithoutRetry(t *testing.T) {
	// Both requests read lot 1 with remaining 20 and plan to take 15. A
	// commits first, so B's conditional write keyed on 20 must fail.
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)

	store.tamper = func(s *memStore) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lots[1].Remaining = s.lots[1].Remaining.Sub(d("15")) // request A wins
		s.tamper = nil
	}

	_, _, err := ledger.commitOnce(context.Background(), 7, d("15"), "ISS/2025/005", day("2025-08-20"))
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	if !store.remaining(1).Equal(d("5")) {
		t.Errorf("lot 1 remaining = %s, want 5 (only A's decrement)", store.remaining(1))
	}
	if len(store.issuances) != 0 {
		t.Errorf("conflicted commit recorded an issuance")
	}
}

func TestCommitRetriesAfterConflict(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)

	store.tamper = func(s *memStore) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lots[1].Remaining = s.lots[1].Remaining.Sub(d("15"))
		s.tamper = nil // only the first read races
	}

	issuance, _, err := ledger.Commit(context.Background(), 7, d("15"), "ISS/2025/006", day("2025-08-20"))
	if err != nil {
		t.Fatalf("Commit should succeed on retry: %v", err)
	}
	// Retry replans over the fresh snapshot: 5 left on lot 1, 10 from lot 4.
	if !store.remaining(1).Equal(d("0")) {
		t.Errorf("lot 1 remaining = %s, want 0", store.remaining(1))
	}
	if !store.remaining(4).Equal(d("70")) {
		t.Errorf("lot 4 remaining = %s, want 70", store.remaining(4))
	}
	want := d("5").Mul(d("350")).Add(d("10").Mul(d("360"))).Round(2)
	if !issuance.TotalAmount.Equal(want) {
		t.Errorf("TotalAmount = %s, want %s", issuance.TotalAmount, want)
	}
}

func TestCommitGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore(scenarioLots()...)
	ledger := NewLedger(store)

	// Every read races: some other writer bumps the balance each time.
	flip := d("1")
	store.tamper = func(s *memStore) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lots[4].Remaining = s.lots[4].Remaining.Add(flip)
		flip = flip.Neg()
	}

	_, _, err := ledger.Commit(context.Background(), 7, d("30"), "ISS/2025/007", day("2025-08-20"))
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification after retries, got %v", err)
	}
	if len(store.issuances) != 0 {
		t.Errorf("gave-up commit recorded an issuance")
	}
}

func TestCommitRejectsNonPositiveQuantity(t *testing.T) {
	ledger := NewLedger(newMemStore(scenarioLots()...))
	if _, _, err := ledger.Commit(context.Background(), 7, d("0"), "ISS/2025/008", day("2025-08-20")); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Commit(0) = %v, want ErrInvalidRequest", err)
	}
}
