package allocation

import (
	"dailybudget/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary holds month-level totals derived from an allocation.
type Summary struct {
	TotalBudget  decimal.Decimal
	TotalSpent   decimal.Decimal
	TotalBalance decimal.Decimal
	IsOverBudget bool

	// CurrentDailyAllowance is what is left spread over the days that have
	// not recorded spend yet, whichever policy produced the results.
	CurrentDailyAllowance decimal.Decimal

	// Projected is the run-rate spend for the whole period based on the
	// average of the locked days.
	Projected   decimal.Decimal
	UsedPercent decimal.Decimal

	LockedDays   int
	UnlockedDays int
}

// Summarize derives totals from per-day results, one per day of the period.
// The current daily allowance is computed from lock counts and totals only,
// not from any policy's per-day figures.
func Summarize(results []Result, baseDailyTarget decimal.Decimal) Summary {
	n := len(results)
	s := Summary{
		TotalBudget: TotalBudget(baseDailyTarget, n),
		TotalSpent:  decimal.Zero,
	}
	for _, r := range results {
		s.TotalSpent = s.TotalSpent.Add(r.Spent)
		if r.Locked {
			s.LockedDays++
		}
	}
	s.TotalBalance = s.TotalBudget.Sub(s.TotalSpent)
	s.IsOverBudget = s.TotalSpent.GreaterThan(s.TotalBudget)

	s.UnlockedDays = n - s.LockedDays
	if s.UnlockedDays < 0 {
		s.UnlockedDays = 0
	}

	s.CurrentDailyAllowance = decimal.Zero
	if s.UnlockedDays > 0 {
		s.CurrentDailyAllowance = s.TotalBalance.DivRound(decimal.NewFromInt(int64(s.UnlockedDays)), divisionPrecision)
	}

	s.Projected = decimal.Zero
	if s.LockedDays > 0 {
		s.Projected = s.TotalSpent.Mul(decimal.NewFromInt(int64(n))).
			DivRound(decimal.NewFromInt(int64(s.LockedDays)), divisionPrecision)
	}

	s.UsedPercent = decimal.Zero
	if s.TotalBudget.IsPositive() {
		s.UsedPercent = s.TotalSpent.Mul(hundred).DivRound(s.TotalBudget, 2)
	}
	return s
}

// Compute runs policy over the ledger and summarizes the results.
func Compute(l core.Ledger, p Policy) ([]Result, Summary) {
	results := p.Allocate(l)
	return results, Summarize(results, l.Config.BaseDailyTarget)
}

// TotalBudget is the daily target times the number of days.
func TotalBudget(baseDailyTarget decimal.Decimal, days int) decimal.Decimal {
	return baseDailyTarget.Mul(decimal.NewFromInt(int64(days)))
}
