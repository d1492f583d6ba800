package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

// Row layout:
//
//	1: version | <n> | base_daily_target | <amount> | updated_at | <rfc3339>
//	2: day | id | amount | label | created_at
//	3+: one row per expense, in day order
var columnHeader = []any{"day", "id", "amount", "label", "created_at"}

// EncodeRows renders a ledger as sheet rows.
func EncodeRows(l core.Ledger) [][]any {
	rows := [][]any{
		{"version", strconv.FormatInt(l.Version, 10),
			"base_daily_target", l.Config.BaseDailyTarget.String(),
			"updated_at", l.UpdatedAt.UTC().Format(time.RFC3339Nano)},
		columnHeader,
	}
	for _, d := range l.Days {
		for _, e := range d.Expenses {
			rows = append(rows, []any{
				strconv.Itoa(d.Day),
				e.ID,
				core.FormatAmount(e.Amount),
				e.Label,
				e.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
	}
	return rows
}

// DecodeRows rebuilds a ledger from sheet rows. Locks are recomputed from
// the expenses, so a hand-edited sheet cannot break the lock invariant.
func DecodeRows(key core.PeriodKey, values [][]any) (core.Ledger, error) {
	if len(values) == 0 {
		return core.Ledger{}, fmt.Errorf("%w: empty sheet", core.ErrMalformedLedger)
	}
	header := toStrings(values[0])
	version, ok := headerVersion(header)
	if !ok {
		return core.Ledger{}, fmt.Errorf("%w: unexpected header %v", core.ErrMalformedLedger, header)
	}
	target, err := decimal.NewFromString(safeGet(header, 3))
	if err != nil {
		return core.Ledger{}, fmt.Errorf("%w: base target %q", core.ErrMalformedLedger, safeGet(header, 3))
	}

	l, err := core.NewLedger(core.PeriodConfig{Key: key, BaseDailyTarget: target})
	if err != nil {
		return core.Ledger{}, err
	}
	l.Version = version
	if ts, err := time.Parse(time.RFC3339Nano, safeGet(header, 5)); err == nil {
		l.UpdatedAt = ts
	}

	for i := 2; i < len(values); i++ {
		cols := toStrings(values[i])
		if len(cols) == 0 || strings.Join(cols, "") == "" {
			continue
		}
		day, err := strconv.Atoi(safeGet(cols, 0))
		if err != nil || day < 1 || day > len(l.Days) {
			return core.Ledger{}, fmt.Errorf("%w: row %d day %q", core.ErrMalformedLedger, i+1, safeGet(cols, 0))
		}
		amount, err := core.ParseAmount(safeGet(cols, 2))
		if err != nil {
			return core.Ledger{}, fmt.Errorf("%w: row %d amount %q", core.ErrMalformedLedger, i+1, safeGet(cols, 2))
		}
		created, _ := time.Parse(time.RFC3339Nano, safeGet(cols, 4))
		rec := core.ExpenseRecord{
			ID:        safeGet(cols, 1),
			Amount:    amount,
			Label:     safeGet(cols, 3),
			CreatedAt: created,
		}
		d := &l.Days[day-1]
		d.Expenses = append(d.Expenses, rec)
		d.Locked = true
	}
	return l, nil
}

func headerVersion(header []string) (int64, bool) {
	if !strings.EqualFold(safeGet(header, 0), "version") {
		return 0, false
	}
	v, err := strconv.ParseInt(safeGet(header, 1), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
