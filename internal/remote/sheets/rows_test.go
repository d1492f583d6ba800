package sheets

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

func TestTabName(t *testing.T) {
	if got := TabName("Budget", core.PeriodKey{Year: 2025, Month: 2}); got != "Budget 2025-02" {
		t.Fatalf("TabName() = %q", got)
	}
}

func TestEncodeDecodeRows(t *testing.T) {
	key := core.PeriodKey{Year: 2025, Month: 2}
	l, err := core.NewLedger(core.PeriodConfig{Key: key, BaseDailyTarget: decimal.RequireFromString("32.5")})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	l, _, _ = core.AddExpense(l, 2, decimal.RequireFromString("10.10"), "bus")
	l, _, _ = core.AddExpense(l, 2, decimal.RequireFromString("4"), "")
	l, _, _ = core.AddExpense(l, 28, decimal.Zero, "nothing")

	rows := EncodeRows(l)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[2][2] != "10.10" {
		t.Errorf("amount cell = %v, want 10.10", rows[2][2])
	}

	got, err := DecodeRows(key, rows)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("decoded ledger invalid: %v", err)
	}
	if got.Version != l.Version || !got.Config.BaseDailyTarget.Equal(l.Config.BaseDailyTarget) {
		t.Errorf("header mismatch: v%d target %s", got.Version, got.Config.BaseDailyTarget)
	}
	if !got.TotalSpent().Equal(l.TotalSpent()) {
		t.Errorf("TotalSpent = %s, want %s", got.TotalSpent(), l.TotalSpent())
	}
	if got.LockedDays() != 2 || !got.Days[27].Locked {
		t.Errorf("locks not rebuilt: %d", got.LockedDays())
	}
	if got.Days[1].Expenses[0].ID != l.Days[1].Expenses[0].ID {
		t.Errorf("expense ids not preserved")
	}
}

func TestDecodeRowsAcceptsSheetFormatting(t *testing.T) {
	key := core.PeriodKey{Year: 2024, Month: 4}
	values := [][]any{
		{"version", "7", "base_daily_target", "20", "updated_at", ""},
		{"day", "id", "amount", "label", "created_at"},
		{"3", "a", "12,5", "comma decimal", ""},
		{"", "", "", "", ""},
		{"30", "b", "1", "", ""},
	}

	got, err := DecodeRows(key, values)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	if !got.Days[2].Spent().Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("day 3 spent = %s", got.Days[2].Spent())
	}
	if len(got.Days) != 30 || !got.Days[29].Locked {
		t.Errorf("unexpected layout")
	}
}

func TestDecodeRowsRejectsBadInput(t *testing.T) {
	key := core.PeriodKey{Year: 2025, Month: 2}
	header := []any{"version", "1", "base_daily_target", "20", "updated_at", ""}
	cols := []any{"day", "id", "amount", "label", "created_at"}

	tests := []struct {
		name   string
		values [][]any
	}{
		{"empty", nil},
		{"missing version", [][]any{{"foo"}}},
		{"bad target", [][]any{{"version", "1", "base_daily_target", "x"}}},
		{"day out of range", [][]any{header, cols, {"29", "a", "1", "", ""}}},
		{"negative amount", [][]any{header, cols, {"1", "a", "-1", "", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRows(key, tt.values)
			if !errors.Is(err, core.ErrMalformedLedger) {
				t.Fatalf("expected ErrMalformedLedger, got %v", err)
			}
		})
	}
}

func TestCredentialsLoad(t *testing.T) {
	if _, err := (Credentials{}).load(); err == nil {
		t.Fatal("expected error without credentials")
	}
	data, err := Credentials{JSON: `{"type":"service_account"}`, File: "/ignored"}.load()
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Fatalf("load() = %s, %v", data, err)
	}
	if _, err := (Credentials{File: "/non/existent.json"}).load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}
