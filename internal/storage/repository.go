package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements ports.LedgerStore.
func (r *SQLiteRepository) Load(ctx context.Context, key core.PeriodKey) (*core.Ledger, error) {
	year, month := int64(key.Year), int64(key.Month)

	p, err := r.queries.GetPeriod(ctx, year, month)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get period %s: %w", key, err)
	}

	days, err := r.queries.ListDays(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list days %s: %w", key, err)
	}
	expenses, err := r.queries.ListExpenses(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses %s: %w", key, err)
	}

	l, err := ledgerFromRows(p, days, expenses)
	if err != nil {
		return nil, fmt.Errorf("decode period %s: %w", key, err)
	}
	return &l, nil
}

// Save implements ports.LedgerStore. The stored period is replaced atomically.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	key := l.Config.Key
	if err := key.Validate(); err != nil {
		return err
	}
	year, month := int64(key.Year), int64(key.Month)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertPeriod(ctx, PeriodRow{
		Year:            year,
		Month:           month,
		BaseDailyTarget: l.Config.BaseDailyTarget.String(),
		Version:         l.Version,
		UpdatedAt:       formatTime(l.UpdatedAt),
	}); err != nil {
		return fmt.Errorf("upsert period %s: %w", key, err)
	}
	if err := q.ClearPeriod(ctx, year, month); err != nil {
		return fmt.Errorf("clear period %s: %w", key, err)
	}
	for _, d := range l.Days {
		if err := q.InsertDay(ctx, year, month, DayRow{Day: int64(d.Day), Locked: d.Locked}); err != nil {
			return fmt.Errorf("insert day %d: %w", d.Day, err)
		}
		for pos, e := range d.Expenses {
			if err := q.InsertExpense(ctx, year, month, pos, ExpenseRow{
				ID:        e.ID,
				Day:       int64(d.Day),
				Amount:    e.Amount.String(),
				Label:     e.Label,
				CreatedAt: formatTime(e.CreatedAt),
			}); err != nil {
				return fmt.Errorf("insert expense %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		"period", key.String(),
		"version", l.Version,
		"locked_days", l.LockedDays())

	return nil
}

// Keys lists the stored periods in chronological order.
func (r *SQLiteRepository) Keys(ctx context.Context) ([]core.PeriodKey, error) {
	rows, err := r.queries.ListPeriodKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	keys := make([]core.PeriodKey, len(rows))
	for i, k := range rows {
		keys[i] = core.PeriodKey{Year: int(k[0]), Month: int(k[1])}
	}
	return keys, nil
}

func ledgerFromRows(p PeriodRow, days []DayRow, expenses []ExpenseRow) (core.Ledger, error) {
	target, err := decimal.NewFromString(p.BaseDailyTarget)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("%w: base target %q", core.ErrMalformedLedger, p.BaseDailyTarget)
	}
	updated, err := parseTime(p.UpdatedAt)
	if err != nil {
		return core.Ledger{}, err
	}

	l := core.Ledger{
		Config: core.PeriodConfig{
			Key:             core.PeriodKey{Year: int(p.Year), Month: int(p.Month)},
			BaseDailyTarget: target,
		},
		Version:   p.Version,
		UpdatedAt: updated,
		Days:      make([]core.DayRecord, len(days)),
	}
	index := make(map[int64]int, len(days))
	for i, d := range days {
		l.Days[i] = core.DayRecord{Day: int(d.Day), Locked: d.Locked}
		index[d.Day] = i
	}
	for _, e := range expenses {
		i, ok := index[e.Day]
		if !ok {
			return core.Ledger{}, fmt.Errorf("%w: expense %s on missing day %d", core.ErrMalformedLedger, e.ID, e.Day)
		}
		amount, err := decimal.NewFromString(e.Amount)
		if err != nil || amount.IsNegative() {
			return core.Ledger{}, fmt.Errorf("%w: expense %s amount %q", core.ErrMalformedLedger, e.ID, e.Amount)
		}
		created, err := parseTime(e.CreatedAt)
		if err != nil {
			return core.Ledger{}, err
		}
		l.Days[i].Expenses = append(l.Days[i].Expenses, core.ExpenseRecord{
			ID:        e.ID,
			Amount:    amount,
			Label:     e.Label,
			CreatedAt: created,
		})
	}
	l.SyncLocks()
	return l, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", core.ErrMalformedLedger, s)
	}
	return t, nil
}
