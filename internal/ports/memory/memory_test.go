package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

func newLedger(t *testing.T, year, month int) core.Ledger {
	t.Helper()
	l, err := core.NewLedger(core.PeriodConfig{
		Key:             core.PeriodKey{Year: year, Month: month},
		BaseDailyTarget: decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func TestStoreLoadMissing(t *testing.T) {
	s := New()
	got, err := s.Load(context.Background(), core.PeriodKey{Year: 2025, Month: 2})
	if err != nil || got != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", got, err)
	}
}

func TestStoreSaveLoadIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	l := newLedger(t, 2025, 2)
	l, _, err := core.AddExpense(l, 3, decimal.NewFromInt(12), "lunch")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if err := s.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	l.Days[2].Expenses[0].Label = "changed"

	got, err := s.Load(ctx, l.Config.Key)
	if err != nil || got == nil {
		t.Fatalf("Load() = %v, %v", got, err)
	}
	if got.Days[2].Expenses[0].Label != "lunch" {
		t.Fatalf("store shares memory with caller: %q", got.Days[2].Expenses[0].Label)
	}

	got.Days[2].Locked = false
	again, _ := s.Load(ctx, l.Config.Key)
	if !again.Days[2].Locked {
		t.Fatal("store shares memory with loaded copy")
	}
}

func TestStoreRejectsInvalidKey(t *testing.T) {
	if err := New().Save(context.Background(), core.Ledger{}); err == nil {
		t.Fatal("expected error for zero key")
	}
}

func TestNewFromDirSeeds(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name string, content []byte) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	data, err := core.MarshalLedger(newLedger(t, 2025, 3))
	if err != nil {
		t.Fatalf("MarshalLedger: %v", err)
	}
	mustWrite("2025-03.json", data)
	data, _ = core.MarshalLedger(newLedger(t, 2024, 12))
	mustWrite("2024-12.json", data)
	mustWrite("broken.json", []byte("{not json"))
	mustWrite("notes.txt", []byte("ignored"))

	s := NewFromDir(dir)
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != (core.PeriodKey{Year: 2024, Month: 12}) {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if got := NewFromDir(filepath.Join(dir, "missing")); len(got.Keys()) != 0 {
		t.Fatal("expected empty store for missing dir")
	}
}
