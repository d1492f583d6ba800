package allocation

import (
	"dailybudget/internal/core"

	"github.com/shopspring/decimal"
)

// SequentialCarryForward treats the period budget as a pool. Days are walked
// in ascending order; each gets the remaining budget divided by the days not
// yet consumed. A locked day consumes its slot and its actual spend after its
// own allowance is computed, so later days absorb any over or under spend.
// Unlocked days leave the pool untouched and keep a provisional allowance.
type SequentialCarryForward struct{}

// Step is the state of the sequential pass when a day is reached.
type Step struct {
	Day              int
	AccumulatedSpent decimal.Decimal
	RemainingDays    int
	RemainingBudget  decimal.Decimal
	Allowance        decimal.Decimal
}

func (SequentialCarryForward) Name() string { return SequentialCarryForwardName }

func (p SequentialCarryForward) Allocate(l core.Ledger) []Result {
	days := orderedDays(l)
	steps := p.trace(days, l.Config.BaseDailyTarget)

	out := make([]Result, len(days))
	for i, d := range days {
		out[i] = newResult(d, steps[i].Allowance, d.Spent())
	}
	return out
}

// Trace exposes the intermediate state of the pass, one Step per day.
// For every step AccumulatedSpent + RemainingDays*Allowance equals the total
// budget up to division rounding.
func (p SequentialCarryForward) Trace(l core.Ledger) []Step {
	return p.trace(orderedDays(l), l.Config.BaseDailyTarget)
}

func (SequentialCarryForward) trace(days []core.DayRecord, base decimal.Decimal) []Step {
	n := len(days)
	total := TotalBudget(base, n)

	accumulated := decimal.Zero
	processed := 0
	steps := make([]Step, n)
	for i, d := range days {
		remainingDays := n - processed
		remainingBudget := total.Sub(accumulated)

		allowance := decimal.Zero
		if remainingDays > 0 {
			allowance = remainingBudget.DivRound(decimal.NewFromInt(int64(remainingDays)), divisionPrecision)
		}

		steps[i] = Step{
			Day:              d.Day,
			AccumulatedSpent: accumulated,
			RemainingDays:    remainingDays,
			RemainingBudget:  remainingBudget,
			Allowance:        allowance,
		}

		if d.Locked {
			accumulated = accumulated.Add(d.Spent())
			processed++
		}
	}
	return steps
}
