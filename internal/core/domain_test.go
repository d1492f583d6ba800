package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPeriodKeyDaysIn(t *testing.T) {
	cases := []struct {
		key  PeriodKey
		days int
	}{
		{PeriodKey{2024, 2}, 29},
		{PeriodKey{2025, 2}, 28},
		{PeriodKey{1900, 2}, 28},
		{PeriodKey{2000, 2}, 29},
		{PeriodKey{2025, 4}, 30},
		{PeriodKey{2025, 12}, 31},
	}
	for _, tc := range cases {
		if got := tc.key.DaysIn(); got != tc.days {
			t.Errorf("%s DaysIn() = %d, want %d", tc.key, got, tc.days)
		}
	}
}

func TestPeriodKeyValidate(t *testing.T) {
	if err := (PeriodKey{2025, 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, k := range []PeriodKey{{2025, 0}, {2025, 13}, {0, 5}} {
		err := k.Validate()
		if err == nil || !IsInvalidInput(err) {
			t.Fatalf("%v expected validation error, got %v", k, err)
		}
	}
}

func TestParsePeriodKey(t *testing.T) {
	k, err := ParsePeriodKey("2025-03")
	if err != nil || k != (PeriodKey{2025, 3}) {
		t.Fatalf("ParsePeriodKey = %v, %v", k, err)
	}
	if k.String() != "2025-03" {
		t.Fatalf("String() = %q", k.String())
	}
	if _, err := ParsePeriodKey("March"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPeriodConfigTotalBudget(t *testing.T) {
	cfg := PeriodConfig{Key: PeriodKey{2025, 2}, BaseDailyTarget: decimal.NewFromInt(30)}
	if !cfg.TotalBudget().Equal(decimal.NewFromInt(840)) {
		t.Fatalf("TotalBudget = %s, want 840", cfg.TotalBudget())
	}
	bad := PeriodConfig{Key: PeriodKey{2025, 2}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestLedgerValidate(t *testing.T) {
	l := mustLedger(t, PeriodKey{2025, 2}, 30)
	if err := l.Validate(); err != nil {
		t.Fatalf("fresh ledger invalid: %v", err)
	}

	short := l.Clone()
	short.Days = short.Days[:27]
	if err := short.Validate(); !IsStructuralMismatch(err) {
		t.Fatalf("expected mismatch for short ledger, got %v", err)
	}

	gap := l.Clone()
	gap.Days[3].Day = 5
	if err := gap.Validate(); !IsStructuralMismatch(err) {
		t.Fatalf("expected mismatch for gap, got %v", err)
	}

	lock := l.Clone()
	lock.Days[0].Locked = true
	if err := lock.Validate(); !IsStructuralMismatch(err) {
		t.Fatalf("expected mismatch for stale lock, got %v", err)
	}
}

func TestLedgerCloneIsDeep(t *testing.T) {
	l := mustLedger(t, PeriodKey{2025, 1}, 10)
	l, _, err := AddExpense(l, 1, decimal.NewFromInt(5), "coffee")
	if err != nil {
		t.Fatal(err)
	}
	c := l.Clone()
	c.Days[0].Expenses[0].Label = "changed"
	if l.Days[0].Expenses[0].Label != "coffee" {
		t.Fatal("Clone shares expense storage")
	}
}

func TestLockedSnapshot(t *testing.T) {
	l := mustLedger(t, PeriodKey{2025, 1}, 10)
	l, _, _ = AddExpense(l, 3, decimal.NewFromInt(5), "a")
	l, _, _ = AddExpense(l, 7, decimal.NewFromInt(0), "zero")

	s := LockedSnapshot(l)
	if len(s.Days) != 2 || s.Days[0].Day != 3 || s.Days[1].Day != 7 {
		t.Fatalf("unexpected snapshot days: %+v", s.Days)
	}
	s.Days[0].Expenses[0].Label = "x"
	if l.Days[2].Expenses[0].Label != "a" {
		t.Fatal("snapshot shares expense storage")
	}
}

func TestDocumentRoundTripKeepsLedger(t *testing.T) {
	l := mustLedger(t, PeriodKey{2024, 2}, 25)
	l, rec, _ := AddExpense(l, 29, decimal.RequireFromString("12.34"), "leap")

	data, err := MarshalLedger(l)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalLedger(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("decoded ledger invalid: %v", err)
	}
	d, ok := back.Day(29)
	if !ok || !d.Locked || d.Expenses[0].ID != rec.ID || !d.Spent().Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("day 29 not preserved: %+v", d)
	}
	if back.Version != l.Version {
		t.Fatalf("version = %d, want %d", back.Version, l.Version)
	}
}

func TestUnmarshalLedgerRecomputesLocks(t *testing.T) {
	raw := `{"year":2025,"month":1,"base_daily_target":"10","days":[{"day":1,"locked":false,"expenses":[{"id":"x","amount":"60"}]},{"day":2,"locked":true}]}`
	l, err := UnmarshalLedger([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !l.Days[0].Locked || l.Days[1].Locked {
		t.Fatalf("locks not derived from expenses: day1=%v day2=%v", l.Days[0].Locked, l.Days[1].Locked)
	}
}

func TestUnmarshalLedgerRejectsNegativeAmount(t *testing.T) {
	raw := `{"year":2025,"month":1,"base_daily_target":"10","days":[{"day":1,"locked":true,"expenses":[{"id":"x","amount":"-3"}]}]}`
	if _, err := UnmarshalLedger([]byte(raw)); !errors.Is(err, ErrMalformedLedger) {
		t.Fatalf("expected ErrMalformedLedger, got %v", err)
	}
}

func mustLedger(t *testing.T, key PeriodKey, target int64) Ledger {
	t.Helper()
	l, err := NewLedger(PeriodConfig{Key: key, BaseDailyTarget: decimal.NewFromInt(target)})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}
