package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var entry = time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)

func TestComputeFeeZeroElapsedBillsOneHour(t *testing.T) {
	for _, raw := range []string{"0.01", "5", "10", "12.50"} {
		rate := decimal.RequireFromString(raw)
		if got := ComputeFee(entry, entry, rate); !got.Equal(rate) {
			t.Fatalf("rate %s: expected %s, got %s", raw, rate, got)
		}
	}
}

func TestComputeFeeHourlySteps(t *testing.T) {
	rate := decimal.NewFromInt(10)
	cases := []struct {
		elapsed time.Duration
		want    int64
	}{
		{0, 10},
		{59*time.Second + 59*time.Minute, 10},
		{time.Minute, 10},
		{59 * time.Minute, 10},
		{60 * time.Minute, 10},
		{61 * time.Minute, 20},
		{90 * time.Minute, 20},
		{120 * time.Minute, 20},
		{121 * time.Minute, 30},
		{24 * time.Hour, 240},
	}
	for _, tc := range cases {
		got := ComputeFee(entry, entry.Add(tc.elapsed), rate)
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Fatalf("elapsed %s: expected %d, got %s", tc.elapsed, tc.want, got)
		}
	}
}

func TestComputeFeeMonotonic(t *testing.T) {
	rate := decimal.RequireFromString("7.5")
	prev := decimal.Zero
	for m := int64(0); m <= 600; m++ {
		got := ComputeFee(entry, entry.Add(time.Duration(m)*time.Minute), rate)
		if got.LessThan(prev) {
			t.Fatalf("fee decreased at minute %d: %s < %s", m, got, prev)
		}
		stepped := got.GreaterThan(prev)
		wantStep := m == 0 || (m > 60 && (m-1)%60 == 0)
		if stepped != wantStep {
			t.Fatalf("minute %d: step=%v, expected step=%v", m, stepped, wantStep)
		}
		prev = got
	}
}

func TestComputeFeeEndBeforeEntry(t *testing.T) {
	rate := decimal.NewFromInt(10)
	if got := ComputeFee(entry, entry.Add(-3*time.Hour), rate); !got.Equal(rate) {
		t.Fatalf("expected minimum charge, got %s", got)
	}
	if ElapsedMinutes(entry, entry.Add(-time.Minute)) != 0 {
		t.Fatal("expected negative elapsed time to clamp to zero")
	}
}

func TestQuoteAt(t *testing.T) {
	q := QuoteAt(entry, entry.Add(90*time.Minute+30*time.Second), decimal.NewFromInt(10))
	if q.ElapsedMinutes != 90 {
		t.Fatalf("expected 90 minutes, got %d", q.ElapsedMinutes)
	}
	if q.BilledHours != 2 {
		t.Fatalf("expected 2 billed hours, got %d", q.BilledHours)
	}
	if !q.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20, got %s", q.Amount)
	}
}
