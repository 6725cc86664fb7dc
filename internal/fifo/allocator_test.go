package fifo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	dec, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return dec
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// The two lots from the reference scenario: 20 units @ 350 received on the
// 14th, 80 units @ 360 received on the 18th.
func scenarioLots() []Lot {
	return []Lot{
		{ID: 1, LotNumber: "GRN-001", Remaining: d("20"), Rate: d("350"), ReceivedDate: day("2025-08-14")},
		{ID: 4, LotNumber: "GRN-004", Remaining: d("80"), Rate: d("360"), ReceivedDate: day("2025-08-18")},
	}
}

func TestAllocateSplitsAcrossLotsOldestFirst(t *testing.T) {
	plan, err := Allocate(7, d("30"), scenarioLots())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if len(plan.Lines) != 2 {
		t.Fatalf("expected 2 plan lines, got %d", len(plan.Lines))
	}
	if plan.Lines[0].LotID != 1 || !plan.Lines[0].TakeQty.Equal(d("20")) || !plan.Lines[0].Rate.Equal(d("350")) {
		t.Errorf("line 0 = %+v, want lot 1 take 20 @ 350", plan.Lines[0])
	}
	if plan.Lines[1].LotID != 4 || !plan.Lines[1].TakeQty.Equal(d("10")) || !plan.Lines[1].Rate.Equal(d("360")) {
		t.Errorf("line 1 = %+v, want lot 4 take 10 @ 360", plan.Lines[1])
	}

	if !plan.TotalAmount.Equal(d("10600")) {
		t.Errorf("TotalAmount = %s, want 10600", plan.TotalAmount)
	}
	if !plan.WeightedRate.Round(2).Equal(d("353.33")) {
		t.Errorf("WeightedRate = %s, want 353.33 at 2dp", plan.WeightedRate.Round(2))
	}
}

func TestAllocatePlanCoversRequestExactly(t *testing.T) {
	for _, qty := range []string{"1", "20", "20.5", "37", "100"} {
		plan, err := Allocate(7, d(qty), scenarioLots())
		if err != nil {
			t.Fatalf("Allocate(%s): %v", qty, err)
		}
		sum := decimal.Zero
		for _, ln := range plan.Lines {
			sum = sum.Add(ln.TakeQty)
		}
		if !sum.Equal(d(qty)) {
			t.Errorf("qty %s: sum of takes = %s", qty, sum)
		}
		// weightedRate * qty must reproduce the total within rounding.
		back := plan.WeightedRate.Mul(plan.RequestedQty)
		if back.Sub(plan.TotalAmount).Abs().GreaterThan(d("0.01")) {
			t.Errorf("qty %s: weightedRate*qty = %s, total = %s", qty, back, plan.TotalAmount)
		}
	}
}

func TestAllocateNeverSkipsAnOlderLot(t *testing.T) {
	lots := []Lot{
		{ID: 3, Remaining: d("5"), Rate: d("10"), ReceivedDate: day("2025-08-20")},
		{ID: 1, Remaining: d("5"), Rate: d("10"), ReceivedDate: day("2025-08-10")},
		{ID: 2, Remaining: d("5"), Rate: d("10"), ReceivedDate: day("2025-08-15")},
	}
	plan, err := Allocate(1, d("8"), lots)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// Oldest lot must be fully drained before a younger lot is touched.
	prev := time.Time{}
	for i, ln := range plan.Lines {
		if ln.ReceivedDate.Before(prev) {
			t.Fatalf("line %d out of order: %s before %s", i, ln.ReceivedDate, prev)
		}
		prev = ln.ReceivedDate
	}
	if plan.Lines[0].LotID != 1 || plan.Lines[1].LotID != 2 {
		t.Errorf("consumed lots %d,%d; want 1,2", plan.Lines[0].LotID, plan.Lines[1].LotID)
	}
	if !plan.Lines[0].TakeQty.Equal(d("5")) {
		t.Errorf("older lot not drained first: took %s of 5", plan.Lines[0].TakeQty)
	}
}

func TestAllocateTieBreaksOnLotID(t *testing.T) {
	same := day("2025-08-14")
	lots := []Lot{
		{ID: 9, Remaining: d("10"), Rate: d("5"), ReceivedDate: same},
		{ID: 2, Remaining: d("10"), Rate: d("5"), ReceivedDate: same},
	}
	plan, err := Allocate(1, d("12"), lots)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if plan.Lines[0].LotID != 2 || plan.Lines[1].LotID != 9 {
		t.Errorf("tie broken as %d,%d; want 2,9", plan.Lines[0].LotID, plan.Lines[1].LotID)
	}
}

func TestAllocateInsufficientStock(t *testing.T) {
	_, err := Allocate(7, d("150"), scenarioLots())
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !short.Requested.Equal(d("150")) || !short.Fulfilled.Equal(d("100")) || !short.Shortfall.Equal(d("50")) {
		t.Errorf("shortfall detail = %+v, want requested 150 fulfilled 100 short 50", short)
	}
}

func TestAllocateExactDrainBoundary(t *testing.T) {
	// Requesting exactly the sum of all remaining succeeds and drains
	// every lot; one unit more is short by exactly one.
	plan, err := Allocate(7, d("100"), scenarioLots())
	if err != nil {
		t.Fatalf("Allocate(100): %v", err)
	}
	for i, ln := range plan.Lines {
		if !ln.TakeQty.Equal(scenarioLots()[i].Remaining) {
			t.Errorf("lot %d not drained: took %s", ln.LotID, ln.TakeQty)
		}
	}

	_, err = Allocate(7, d("101"), scenarioLots())
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !short.Shortfall.Equal(d("1")) {
		t.Errorf("Shortfall = %s, want 1", short.Shortfall)
	}
}

func TestAllocateRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []string{"0", "-1", "-0.5"} {
		if _, err := Allocate(7, d(qty), scenarioLots()); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Allocate(%s) = %v, want ErrInvalidRequest", qty, err)
		}
	}
}

func TestAllocateNoCandidates(t *testing.T) {
	_, err := Allocate(7, d("5"), nil)
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !short.Fulfilled.IsZero() || !short.Shortfall.Equal(d("5")) {
		t.Errorf("detail = %+v, want fulfilled 0 short 5", short)
	}
}

func TestAllocateDoesNotMutateCandidates(t *testing.T) {
	lots := scenarioLots()
	if _, err := Allocate(7, d("30"), lots); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !lots[0].Remaining.Equal(d("20")) || !lots[1].Remaining.Equal(d("80")) {
		t.Errorf("candidate snapshot mutated: %s / %s", lots[0].Remaining, lots[1].Remaining)
	}
	if lots[0].ID != 1 {
		t.Errorf("candidate order mutated")
	}
}
