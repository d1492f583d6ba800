// Package services orchestrates the budget engine with its collaborators:
// persistence, remote mirror, change events and the AI advisor.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dailybudget/internal/allocation"
	"dailybudget/internal/cache"
	"dailybudget/internal/core"
	applog "dailybudget/internal/log"
	"dailybudget/internal/ports"
)

var (
	// ErrRemoteDisabled is returned by PullRemote when no remote is configured.
	ErrRemoteDisabled = errors.New("remote sync is not configured")
	// ErrAdvisorDisabled is returned when no AI collaborator is configured.
	ErrAdvisorDisabled = errors.New("advisor is not configured")
)

// Deps are the collaborators of the service. Only Store is required.
type Deps struct {
	Store     ports.LedgerStore
	Remote    ports.RemoteSync
	Publisher ports.ChangePublisher
	Advisor   ports.Advisor
	Receipts  ports.ReceiptReader
}

// Options configure the service.
type Options struct {
	BaseDailyTarget decimal.Decimal
	DefaultPolicy   string
	MergePolicy     string
	CacheSize       int
	CacheTTL        time.Duration
}

// View is a ledger with its allocation and summary under one policy.
type View struct {
	Ledger  core.Ledger
	Policy  string
	Results []allocation.Result
	Summary allocation.Summary
}

// BudgetService is the single writer of every period ledger. Mutations of one
// period are serialized; different periods proceed independently.
type BudgetService struct {
	deps          Deps
	base          decimal.Decimal
	defaultPolicy string
	merge         MergePolicy
	views         *cache.LRUCache[View]

	mu    sync.Mutex
	locks map[core.PeriodKey]*sync.Mutex
}

func NewBudgetService(deps Deps, opts Options) (*BudgetService, error) {
	if deps.Store == nil {
		return nil, errors.New("budget service requires a ledger store")
	}
	if !opts.BaseDailyTarget.IsPositive() {
		return nil, core.ErrInvalidTarget
	}
	if _, err := allocation.Get(opts.DefaultPolicy); err != nil {
		return nil, err
	}
	merge, err := GetMergePolicy(opts.MergePolicy)
	if err != nil {
		return nil, err
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &BudgetService{
		deps:          deps,
		base:          opts.BaseDailyTarget,
		defaultPolicy: opts.DefaultPolicy,
		merge:         merge,
		views:         cache.NewLRUCache[View](opts.CacheSize, opts.CacheTTL),
		locks:         make(map[core.PeriodKey]*sync.Mutex),
	}, nil
}

// ViewCache exposes the view cache so the host can register it for cleanup.
func (s *BudgetService) ViewCache() cache.Cleaner {
	return s.views
}

// Policies lists the registered allocation policies.
func (s *BudgetService) Policies() []string {
	return allocation.Names()
}

// DefaultPolicy returns the policy used when a caller does not pick one.
func (s *BudgetService) DefaultPolicy() string {
	if s.defaultPolicy == "" {
		return allocation.Default
	}
	return s.defaultPolicy
}

func (s *BudgetService) lock(key core.PeriodKey) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Open returns the ledger of a period, creating it when nothing usable is stored.
func (s *BudgetService) Open(ctx context.Context, key core.PeriodKey) (core.Ledger, error) {
	if err := key.Validate(); err != nil {
		return core.Ledger{}, err
	}
	unlock := s.lock(key)
	defer unlock()
	return s.openLocked(ctx, key)
}

func (s *BudgetService) openLocked(ctx context.Context, key core.PeriodKey) (core.Ledger, error) {
	loaded, err := s.deps.Store.Load(ctx, key)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("load ledger %s: %w", key, err)
	}
	l, reset, err := core.OpenPeriod(loaded, key, s.base)
	if err != nil {
		return core.Ledger{}, err
	}
	if reset {
		slog.WarnContext(ctx, "Stored ledger does not match the period, starting fresh",
			applog.FieldComponent, applog.ComponentBudget,
			applog.FieldPeriod, key.String(),
			applog.FieldLedgerVersion, l.Version)
	}
	if loaded == nil || reset || !loaded.Config.BaseDailyTarget.Equal(s.base) {
		if err := s.deps.Store.Save(ctx, l); err != nil {
			return core.Ledger{}, fmt.Errorf("save ledger %s: %w", key, err)
		}
	}
	return l, nil
}

// View computes the allocation of a period under policyName, or the default
// policy when empty. Results are cached per ledger version.
func (s *BudgetService) View(ctx context.Context, key core.PeriodKey, policyName string) (View, error) {
	if policyName == "" {
		policyName = s.DefaultPolicy()
	}
	policy, err := allocation.Get(policyName)
	if err != nil {
		return View{}, err
	}
	l, err := s.Open(ctx, key)
	if err != nil {
		return View{}, err
	}

	cacheKey := viewCacheKey(l, policy.Name())
	if v, ok := s.views.Get(cacheKey); ok {
		return v, nil
	}

	results, summary := allocation.Compute(l, policy)
	v := View{Ledger: l, Policy: policy.Name(), Results: results, Summary: summary}
	s.views.Set(cacheKey, v)
	return v, nil
}

func viewCacheKey(l core.Ledger, policy string) string {
	return fmt.Sprintf("%s/%s/%d/%s", l.Config.Key, policy, l.Version, l.Config.BaseDailyTarget)
}

// AddExpense records an expense on day and returns it.
func (s *BudgetService) AddExpense(ctx context.Context, key core.PeriodKey, day int, amount decimal.Decimal, label string) (core.ExpenseRecord, error) {
	if err := key.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	unlock := s.lock(key)
	defer unlock()

	l, err := s.openLocked(ctx, key)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	next, rec, err := core.AddExpense(l, day, amount, label)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := s.commit(ctx, next); err != nil {
		return core.ExpenseRecord{}, err
	}

	slog.InfoContext(ctx, "Expense added",
		applog.NewFields().
			WithComponent(applog.ComponentBudget).
			WithOperation(applog.OpAdd).
			WithPeriod(key.Year, key.Month).
			WithExpense(day, rec.ID, rec.Amount).
			WithVersion(next.Version).
			ToSlice()...)
	return rec, nil
}

// RemoveExpense deletes expense id from day.
func (s *BudgetService) RemoveExpense(ctx context.Context, key core.PeriodKey, day int, id string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	unlock := s.lock(key)
	defer unlock()

	l, err := s.openLocked(ctx, key)
	if err != nil {
		return err
	}
	next, err := core.RemoveExpense(l, day, id)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense removed",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldPeriod, key.String(),
		applog.FieldDay, day,
		applog.FieldExpenseID, id,
		applog.FieldLedgerVersion, next.Version)
	return nil
}

// Reset clears every expense of the period.
func (s *BudgetService) Reset(ctx context.Context, key core.PeriodKey) (core.Ledger, error) {
	if err := key.Validate(); err != nil {
		return core.Ledger{}, err
	}
	unlock := s.lock(key)
	defer unlock()

	l, err := s.openLocked(ctx, key)
	if err != nil {
		return core.Ledger{}, err
	}
	next := core.ResetLedger(l)
	if err := s.commit(ctx, next); err != nil {
		return core.Ledger{}, err
	}

	slog.InfoContext(ctx, "Ledger reset",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldPeriod, key.String(),
		applog.FieldLedgerVersion, next.Version)
	return next, nil
}

// PullRemote fetches the remote copy of a period and folds it into the local
// ledger with the configured merge policy. The bool reports a local change.
// A missing or unusable remote copy leaves the local ledger untouched.
func (s *BudgetService) PullRemote(ctx context.Context, key core.PeriodKey) (core.Ledger, bool, error) {
	if s.deps.Remote == nil {
		return core.Ledger{}, false, ErrRemoteDisabled
	}
	if err := key.Validate(); err != nil {
		return core.Ledger{}, false, err
	}
	unlock := s.lock(key)
	defer unlock()

	local, err := s.openLocked(ctx, key)
	if err != nil {
		return core.Ledger{}, false, err
	}

	remote, err := s.deps.Remote.Pull(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "Remote pull failed, keeping local ledger",
			applog.FieldComponent, applog.ComponentRemote,
			applog.FieldPeriod, key.String(),
			applog.FieldError, err)
		return local, false, fmt.Errorf("pull %s: %w", key, err)
	}
	if remote == nil {
		return local, false, nil
	}
	if remote.Config.Key != key || remote.Validate() != nil {
		slog.WarnContext(ctx, "Remote ledger is malformed, ignoring",
			applog.FieldComponent, applog.ComponentRemote,
			applog.FieldPeriod, key.String())
		return local, false, fmt.Errorf("pull %s: %w", key, core.ErrMalformedLedger)
	}

	merged, changed := s.merge.Merge(local, *remote)
	if !changed {
		return local, false, nil
	}
	if merged.Version > remote.Version {
		err = s.commit(ctx, merged)
	} else {
		err = s.save(ctx, merged)
	}
	if err != nil {
		return core.Ledger{}, false, err
	}

	slog.InfoContext(ctx, "Remote ledger applied",
		applog.FieldComponent, applog.ComponentRemote,
		applog.FieldOperation, applog.OpPull,
		applog.FieldPeriod, key.String(),
		applog.FieldLedgerVersion, merged.Version)
	return merged, true, nil
}

// Advise asks the AI collaborator for guidance on the locked days of a period.
func (s *BudgetService) Advise(ctx context.Context, key core.PeriodKey) (string, error) {
	if s.deps.Advisor == nil {
		return "", ErrAdvisorDisabled
	}
	l, err := s.Open(ctx, key)
	if err != nil {
		return "", err
	}
	advice, err := s.deps.Advisor.Advise(ctx, core.LockedSnapshot(l))
	if err != nil {
		return "", fmt.Errorf("advise %s: %w", key, err)
	}
	return advice, nil
}

// ScanReceipt extracts the amount from a receipt image and records it on day.
func (s *BudgetService) ScanReceipt(ctx context.Context, key core.PeriodKey, day int, image []byte, mediaType string) (core.ExpenseRecord, error) {
	if s.deps.Receipts == nil {
		return core.ExpenseRecord{}, ErrAdvisorDisabled
	}
	if err := key.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	if day < 1 || day > key.DaysIn() {
		return core.ExpenseRecord{}, &core.ValidationError{Field: "day", Err: core.ErrInvalidDay}
	}
	amount, err := s.deps.Receipts.ExtractAmount(ctx, image, mediaType)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("scan receipt: %w", err)
	}
	return s.AddExpense(ctx, key, day, amount, "receipt")
}

// commit saves a mutated ledger and notifies the rest of the system. Only
// the save can fail the mutation.
func (s *BudgetService) commit(ctx context.Context, l core.Ledger) error {
	if err := s.save(ctx, l); err != nil {
		return err
	}

	key := l.Config.Key
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishLedgerChanged(ctx, key, l.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger change",
				applog.FieldComponent, applog.ComponentEvents,
				applog.FieldPeriod, key.String(),
				applog.FieldLedgerVersion, l.Version,
				applog.FieldError, err)
			// Don't fail the request - the ledger is saved locally
		}
		return nil
	}
	if s.deps.Remote != nil {
		if err := s.deps.Remote.Push(ctx, l); err != nil {
			slog.ErrorContext(ctx, "Failed to push ledger to remote",
				applog.FieldComponent, applog.ComponentRemote,
				applog.FieldPeriod, key.String(),
				applog.FieldLedgerVersion, l.Version,
				applog.FieldError, err)
		}
	}
	return nil
}

func (s *BudgetService) save(ctx context.Context, l core.Ledger) error {
	if err := s.deps.Store.Save(ctx, l); err != nil {
		return fmt.Errorf("save ledger %s: %w", l.Config.Key, err)
	}
	s.views.DeletePrefix(l.Config.Key.String() + "/")
	return nil
}
