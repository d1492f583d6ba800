package services

import (
	"fmt"
	"time"

	"dailybudget/internal/core"
)

// MergePolicy is the strategy deciding how a pulled remote ledger combines
// with the local one. Both ledgers are structurally valid for the same period.
type MergePolicy interface {
	// Merge returns the ledger to keep and whether it differs from local.
	Merge(local, remote core.Ledger) (core.Ledger, bool)
}

const (
	OverwriteMergeName = "overwrite"
	UnionMergeName     = "merge"
)

// OverwriteMerge replaces the local ledger when the remote one has a higher version.
type OverwriteMerge struct{}

func (OverwriteMerge) Merge(local, remote core.Ledger) (core.Ledger, bool) {
	if remote.Version > local.Version {
		out := remote.Clone()
		out.Config.BaseDailyTarget = local.Config.BaseDailyTarget
		return out, true
	}
	return local, false
}

// UnionMerge keeps every expense found on either side, matched by id, and
// recomputes the day locks. The result gets a version above both inputs.
type UnionMerge struct {
	now func() time.Time
}

func (m UnionMerge) Merge(local, remote core.Ledger) (core.Ledger, bool) {
	out := local.Clone()
	changed := false
	for i := range out.Days {
		if i >= len(remote.Days) {
			break
		}
		seen := make(map[string]struct{}, len(out.Days[i].Expenses))
		for _, e := range out.Days[i].Expenses {
			seen[e.ID] = struct{}{}
		}
		for _, e := range remote.Days[i].Expenses {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			out.Days[i].Expenses = append(out.Days[i].Expenses, e)
			changed = true
		}
		out.Days[i].Locked = len(out.Days[i].Expenses) > 0
	}
	if !changed {
		return local, false
	}
	out.Version = max(local.Version, remote.Version) + 1
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	out.UpdatedAt = now().UTC()
	return out, true
}

// mergePolicies maps configuration names to strategies.
var mergePolicies = map[string]MergePolicy{
	OverwriteMergeName: OverwriteMerge{},
	UnionMergeName:     UnionMerge{},
}

// GetMergePolicy returns the merge strategy for name; empty selects overwrite.
func GetMergePolicy(name string) (MergePolicy, error) {
	if name == "" {
		name = OverwriteMergeName
	}
	p, ok := mergePolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown merge policy: %s", name)
	}
	return p, nil
}

// RegisterMergePolicy adds or replaces a merge strategy.
func RegisterMergePolicy(name string, p MergePolicy) {
	mergePolicies[name] = p
}
