package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dailybudget/internal/core"
	"dailybudget/internal/events"
	"dailybudget/internal/ports"
)

// SyncWorker pushes ledgers from the local store to the remote mirror.
type SyncWorker struct {
	store  ports.LedgerStore
	remote ports.RemoteSync
	now    func() time.Time

	mu     sync.Mutex
	pushed map[core.PeriodKey]int64
}

func NewSyncWorker(store ports.LedgerStore, remote ports.RemoteSync) *SyncWorker {
	return &SyncWorker{
		store:  store,
		remote: remote,
		now:    time.Now,
		pushed: make(map[core.PeriodKey]int64),
	}
}

// HandleLedgerChanged processes a single change message. A message announcing
// a version the store does not have yet is returned as an error so the broker
// redelivers it.
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *events.LedgerChangedMessage) error {
	key := msg.Key()
	slog.InfoContext(ctx, "Processing ledger changed message",
		"period", key.String(),
		"version", msg.Version)

	l, err := w.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load ledger %s: %w", key, err)
	}
	if l == nil {
		slog.WarnContext(ctx, "Ledger not found for change message, skipping", "period", key.String())
		return nil
	}
	if l.Version < msg.Version {
		return fmt.Errorf("ledger %s at v%d, message announces v%d", key, l.Version, msg.Version)
	}
	return w.push(ctx, *l)
}

// ProcessPeriods pushes the given periods, or the current one when none are
// given. It is the backup for lost messages.
func (w *SyncWorker) ProcessPeriods(ctx context.Context, keys ...core.PeriodKey) error {
	if len(keys) == 0 {
		keys = []core.PeriodKey{core.NewPeriodKey(w.now())}
	}
	var errs []error
	for _, key := range keys {
		l, err := w.store.Load(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("load ledger %s: %w", key, err))
			continue
		}
		if l == nil {
			continue
		}
		if err := w.push(ctx, *l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run calls ProcessPeriods immediately and then every interval until ctx ends.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Periodic sync started", "interval", interval)
	for {
		if err := w.ProcessPeriods(ctx); err != nil {
			slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic sync stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *SyncWorker) push(ctx context.Context, l core.Ledger) error {
	key := l.Config.Key

	w.mu.Lock()
	last, seen := w.pushed[key]
	w.mu.Unlock()
	if seen && last >= l.Version {
		slog.DebugContext(ctx, "Ledger already pushed", "period", key.String(), "version", l.Version)
		return nil
	}

	err := w.remote.Push(ctx, l)
	if errors.Is(err, ports.ErrRemoteAhead) {
		slog.WarnContext(ctx, "Remote ledger is newer, not overwriting",
			"period", key.String(),
			"version", l.Version,
			"error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("push ledger %s: %w", key, err)
	}

	w.mu.Lock()
	if l.Version > w.pushed[key] {
		w.pushed[key] = l.Version
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Ledger pushed to remote",
		"period", key.String(),
		"version", l.Version,
		"locked_days", l.LockedDays())
	return nil
}
