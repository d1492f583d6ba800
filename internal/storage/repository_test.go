package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleLedger(t *testing.T) core.Ledger {
	t.Helper()
	l, err := core.NewLedger(core.PeriodConfig{
		Key:             core.PeriodKey{Year: 2025, Month: 2},
		BaseDailyTarget: decimal.RequireFromString("30.5"),
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	for _, e := range []struct {
		day    int
		amount string
		label  string
	}{
		{1, "12.30", "coffee"},
		{1, "40", "groceries"},
		{14, "0", ""},
	} {
		l, _, err = core.AddExpense(l, e.day, decimal.RequireFromString(e.amount), e.label)
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}
	return l
}

func TestLoadMissingPeriod(t *testing.T) {
	repo := newRepo(t)
	got, err := repo.Load(context.Background(), core.PeriodKey{Year: 2025, Month: 2})
	if err != nil || got != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", got, err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	want := sampleLedger(t)

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx, want.Config.Key)
	if err != nil || got == nil {
		t.Fatalf("Load() = %v, %v", got, err)
	}

	if err := got.Validate(); err != nil {
		t.Fatalf("loaded ledger invalid: %v", err)
	}
	if got.Version != want.Version {
		t.Errorf("Version = %d, want %d", got.Version, want.Version)
	}
	if !got.Config.BaseDailyTarget.Equal(want.Config.BaseDailyTarget) {
		t.Errorf("target = %s, want %s", got.Config.BaseDailyTarget, want.Config.BaseDailyTarget)
	}
	if !got.TotalSpent().Equal(want.TotalSpent()) {
		t.Errorf("TotalSpent = %s, want %s", got.TotalSpent(), want.TotalSpent())
	}
	day1 := got.Days[0]
	if len(day1.Expenses) != 2 || day1.Expenses[0].Label != "coffee" || day1.Expenses[1].Label != "groceries" {
		t.Errorf("day 1 expenses out of order: %+v", day1.Expenses)
	}
	if !got.Days[13].Locked || got.Days[2].Locked {
		t.Errorf("lock flags not preserved")
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func TestSaveReplacesPeriod(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	l := sampleLedger(t)
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	id := l.Days[0].Expenses[0].ID
	l, err := core.RemoveExpense(l, 1, id)
	if err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := repo.Load(ctx, l.Config.Key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Days[0].Expenses) != 1 {
		t.Fatalf("expected 1 expense on day 1, got %d", len(got.Days[0].Expenses))
	}
	if got.Version != l.Version {
		t.Errorf("Version = %d, want %d", got.Version, l.Version)
	}
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	for _, k := range []core.PeriodKey{{Year: 2025, Month: 3}, {Year: 2024, Month: 11}} {
		l, err := core.NewLedger(core.PeriodConfig{Key: k, BaseDailyTarget: decimal.NewFromInt(10)})
		if err != nil {
			t.Fatalf("NewLedger: %v", err)
		}
		if err := repo.Save(ctx, l); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	keys, err := repo.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != (core.PeriodKey{Year: 2024, Month: 11}) {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}
}

func TestLedgerFromRowsRejectsNegativeAmount(t *testing.T) {
	_, err := ledgerFromRows(
		PeriodRow{Year: 2025, Month: 2, BaseDailyTarget: "10", UpdatedAt: "2025-02-01T00:00:00Z"},
		[]DayRow{{Day: 1, Locked: true}},
		[]ExpenseRow{{ID: "x", Day: 1, Amount: "-1", CreatedAt: "2025-02-01T00:00:00Z"}},
	)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLedgerFromRowsDerivesLocks(t *testing.T) {
	l, err := ledgerFromRows(
		PeriodRow{Year: 2025, Month: 2, BaseDailyTarget: "10", UpdatedAt: "2025-02-01T00:00:00Z"},
		[]DayRow{{Day: 1, Locked: false}, {Day: 2, Locked: true}},
		[]ExpenseRow{{ID: "x", Day: 1, Amount: "60", CreatedAt: "2025-02-01T00:00:00Z"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Days[0].Locked || l.Days[1].Locked {
		t.Fatalf("locks not derived from expenses: day1=%v day2=%v", l.Days[0].Locked, l.Days[1].Locked)
	}
}
