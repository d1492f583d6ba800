package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxLabelLength = 200

type (
	// ExpenseRecord is a single spend entry owned by exactly one DayRecord.
	ExpenseRecord struct {
		ID        string
		Amount    decimal.Decimal
		Label     string
		CreatedAt time.Time
	}

	// DayRecord is one calendar day of a period. Locked is true exactly when
	// the day holds at least one expense.
	DayRecord struct {
		Day      int
		Expenses []ExpenseRecord
		Locked   bool
	}

	// PeriodKey identifies a calendar month.
	PeriodKey struct {
		Year  int
		Month int
	}

	// PeriodConfig is the budget target for a period. The total budget is
	// always derived from the daily target and the month length.
	PeriodConfig struct {
		Key             PeriodKey
		BaseDailyTarget decimal.Decimal
	}

	// Ledger holds every DayRecord of one period, indexed 1..DaysInPeriod.
	Ledger struct {
		Config    PeriodConfig
		Days      []DayRecord
		Version   int64
		UpdatedAt time.Time
	}
)

// NewPeriodKey builds a key from a time in its own location.
func NewPeriodKey(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Month: int(t.Month())}
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

func (k PeriodKey) Validate() error {
	if k.Year < 1 || k.Year > 9999 {
		return invalid("year", ErrInvalidYear)
	}
	if k.Month < 1 || k.Month > 12 {
		return invalid("month", ErrInvalidMonth)
	}
	return nil
}

// DaysIn returns the number of calendar days in the month (28-31).
func (k PeriodKey) DaysIn() int {
	return time.Date(k.Year, time.Month(k.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParsePeriodKey parses "YYYY-MM".
func ParsePeriodKey(s string) (PeriodKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return PeriodKey{}, invalid("period", fmt.Errorf("%w: %q", ErrInvalidMonth, s))
	}
	return NewPeriodKey(t), nil
}

func (c PeriodConfig) DaysInPeriod() int {
	return c.Key.DaysIn()
}

// TotalBudget is BaseDailyTarget * DaysInPeriod.
func (c PeriodConfig) TotalBudget() decimal.Decimal {
	return c.BaseDailyTarget.Mul(decimal.NewFromInt(int64(c.DaysInPeriod())))
}

func (c PeriodConfig) Validate() error {
	if err := c.Key.Validate(); err != nil {
		return err
	}
	if !c.BaseDailyTarget.IsPositive() {
		return invalid("base_daily_target", ErrInvalidTarget)
	}
	return nil
}

// Spent sums the amounts of all expenses of the day.
func (d DayRecord) Spent() decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Validate checks the structural invariant: exactly DaysInPeriod records
// numbered 1..N in order, with lock flags matching their expense lists.
func (l Ledger) Validate() error {
	if err := l.Config.Key.Validate(); err != nil {
		return err
	}
	n := l.Config.DaysInPeriod()
	if len(l.Days) != n {
		return fmt.Errorf("%w: %s has %d days, want %d", ErrMalformedLedger, l.Config.Key, len(l.Days), n)
	}
	for i, d := range l.Days {
		if d.Day != i+1 {
			return fmt.Errorf("%w: record %d holds day %d", ErrMalformedLedger, i, d.Day)
		}
		if d.Locked != (len(d.Expenses) > 0) {
			return fmt.Errorf("%w: day %d lock flag out of sync", ErrMalformedLedger, d.Day)
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share expense slices.
func (l Ledger) Clone() Ledger {
	out := l
	out.Days = make([]DayRecord, len(l.Days))
	for i, d := range l.Days {
		d.Expenses = append([]ExpenseRecord(nil), d.Expenses...)
		out.Days[i] = d
	}
	return out
}

// SyncLocks recomputes every lock flag from its expense list.
func (l *Ledger) SyncLocks() {
	for i := range l.Days {
		l.Days[i].Locked = len(l.Days[i].Expenses) > 0
	}
}

// Day returns the record for a 1-based day number.
func (l Ledger) Day(day int) (DayRecord, bool) {
	if day < 1 || day > len(l.Days) {
		return DayRecord{}, false
	}
	return l.Days[day-1], true
}

// LockedDays counts days that have recorded spend.
func (l Ledger) LockedDays() int {
	n := 0
	for _, d := range l.Days {
		if d.Locked {
			n++
		}
	}
	return n
}

// TotalSpent sums every expense of the period.
func (l Ledger) TotalSpent() decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.Days {
		total = total.Add(d.Spent())
	}
	return total
}

// Snapshot is a read-only view of the settled days of a period, handed to
// advice and OCR collaborators.
type Snapshot struct {
	Config PeriodConfig
	Days   []DayRecord
}

// LockedSnapshot copies the locked days only.
func LockedSnapshot(l Ledger) Snapshot {
	s := Snapshot{Config: l.Config}
	for _, d := range l.Days {
		if !d.Locked {
			continue
		}
		d.Expenses = append([]ExpenseRecord(nil), d.Expenses...)
		s.Days = append(s.Days, d)
	}
	return s
}

func validateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if utf8.RuneCountInString(label) > maxLabelLength {
		return "", invalid("label", ErrLabelTooLong)
	}
	return label, nil
}
