// Package allocation computes per-day spending allowances from a ledger.
//
// Each allocation policy is a strategy behind the Policy interface. Policies
// are pure: they read the full ledger on every call, never mutate it and keep
// no state between calls, so the host re-runs them after every mutation.
package allocation

import (
	"errors"
	"fmt"
	"sort"

	"dailybudget/internal/core"

	"github.com/shopspring/decimal"
)

// Fractional digits kept when dividing budgets across days.
const divisionPrecision = 10

var ErrUnknownPolicy = errors.New("unknown allocation policy")

// Result is the allocation for one day. Remaining is Allowance - Spent.
type Result struct {
	Day       int
	Allowance decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Locked    bool
}

// Critical reports whether the day has no budget left: a negative allowance
// or spend above the allowance.
func (r Result) Critical() bool {
	return r.Allowance.IsNegative() || r.Remaining.IsNegative()
}

// Policy is the strategy interface for distributing a period budget over its days.
type Policy interface {
	// Name is the identifier used to select the policy.
	Name() string
	// Allocate returns one Result per day, ordered by day number.
	Allocate(l core.Ledger) []Result
}

const (
	RetroactiveSymmetricName   = "rsr"
	SequentialCarryForwardName = "scr"

	// Default is the policy used when the host does not pick one.
	Default = SequentialCarryForwardName
)

// policies maps names to their strategies.
var policies = map[string]Policy{
	RetroactiveSymmetricName:   RetroactiveSymmetric{},
	SequentialCarryForwardName: SequentialCarryForward{},
}

// Get returns the policy registered under name. An empty name selects Default.
func Get(name string) (Policy, error) {
	if name == "" {
		name = Default
	}
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	return p, nil
}

// Register adds or replaces a policy. Call it during initialization only.
func Register(p Policy) {
	policies[p.Name()] = p
}

// Names lists the registered policy names in sorted order.
func Names() []string {
	out := make([]string, 0, len(policies))
	for name := range policies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// orderedDays returns the day records sorted by day number without touching
// the ledger.
func orderedDays(l core.Ledger) []core.DayRecord {
	days := append([]core.DayRecord(nil), l.Days...)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

func newResult(d core.DayRecord, allowance, spent decimal.Decimal) Result {
	return Result{
		Day:       d.Day,
		Allowance: allowance,
		Spent:     spent,
		Remaining: allowance.Sub(spent),
		Locked:    d.Locked,
	}
}
