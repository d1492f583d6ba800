package allocation

import (
	"dailybudget/internal/core"

	"github.com/shopspring/decimal"
)

// RetroactiveSymmetric spreads every day's overspend evenly over all the
// other days of the period, past and future alike. A day's allowance is the
// base target minus its share of the excess recorded elsewhere; its own excess
// never penalizes itself. Lock state is ignored.
type RetroactiveSymmetric struct{}

func (RetroactiveSymmetric) Name() string { return RetroactiveSymmetricName }

func (p RetroactiveSymmetric) Allocate(l core.Ledger) []Result {
	days := orderedDays(l)
	base := l.Config.BaseDailyTarget
	penalties := p.penalties(days, base)

	out := make([]Result, len(days))
	for i, d := range days {
		out[i] = newResult(d, base.Sub(penalties[i]), d.Spent())
	}
	return out
}

// Penalties returns the amount subtracted from the base target for each day,
// ordered by day number. Allowance + penalty equals the base target exactly.
func (p RetroactiveSymmetric) Penalties(l core.Ledger) []decimal.Decimal {
	return p.penalties(orderedDays(l), l.Config.BaseDailyTarget)
}

func (RetroactiveSymmetric) penalties(days []core.DayRecord, base decimal.Decimal) []decimal.Decimal {
	excess := make([]decimal.Decimal, len(days))
	totalExcess := decimal.Zero
	for i, d := range days {
		excess[i] = Excess(d.Spent(), base)
		totalExcess = totalExcess.Add(excess[i])
	}

	// A single-day period has nobody else to share with; the denominator is
	// clamped to 1 and othersExcess is zero anyway.
	others := len(days) - 1
	if others < 1 {
		others = 1
	}
	denom := decimal.NewFromInt(int64(others))

	out := make([]decimal.Decimal, len(days))
	for i := range days {
		othersExcess := totalExcess.Sub(excess[i])
		out[i] = othersExcess.DivRound(denom, divisionPrecision)
	}
	return out
}

// Excess is the amount by which spent exceeds the base target, never negative.
func Excess(spent, base decimal.Decimal) decimal.Decimal {
	if e := spent.Sub(base); e.IsPositive() {
		return e
	}
	return decimal.Zero
}
