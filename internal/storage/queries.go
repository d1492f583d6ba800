package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type PeriodRow struct {
	Year            int64
	Month           int64
	BaseDailyTarget string
	Version         int64
	UpdatedAt       string
}

type DayRow struct {
	Day    int64
	Locked bool
}

type ExpenseRow struct {
	ID        string
	Day       int64
	Amount    string
	Label     string
	CreatedAt string
}

const getPeriod = `
SELECT year, month, base_daily_target, version, updated_at
FROM periods
WHERE year = ? AND month = ?
`

func (q *Queries) GetPeriod(ctx context.Context, year, month int64) (PeriodRow, error) {
	row := q.db.QueryRowContext(ctx, getPeriod, year, month)
	var p PeriodRow
	err := row.Scan(&p.Year, &p.Month, &p.BaseDailyTarget, &p.Version, &p.UpdatedAt)
	return p, err
}

const listDays = `
SELECT day, locked
FROM days
WHERE year = ? AND month = ?
ORDER BY day
`

func (q *Queries) ListDays(ctx context.Context, year, month int64) ([]DayRow, error) {
	rows, err := q.db.QueryContext(ctx, listDays, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DayRow
	for rows.Next() {
		var d DayRow
		if err := rows.Scan(&d.Day, &d.Locked); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const listExpenses = `
SELECT id, day, amount, label, created_at
FROM expenses
WHERE year = ? AND month = ?
ORDER BY day, position
`

func (q *Queries) ListExpenses(ctx context.Context, year, month int64) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var e ExpenseRow
		if err := rows.Scan(&e.ID, &e.Day, &e.Amount, &e.Label, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const listPeriodKeys = `
SELECT year, month
FROM periods
ORDER BY year, month
`

func (q *Queries) ListPeriodKeys(ctx context.Context) ([][2]int64, error) {
	rows, err := q.db.QueryContext(ctx, listPeriodKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items [][2]int64
	for rows.Next() {
		var k [2]int64
		if err := rows.Scan(&k[0], &k[1]); err != nil {
			return nil, err
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

const upsertPeriod = `
INSERT INTO periods (year, month, base_daily_target, version, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (year, month) DO UPDATE SET
    base_daily_target = excluded.base_daily_target,
    version = excluded.version,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertPeriod(ctx context.Context, p PeriodRow) error {
	_, err := q.db.ExecContext(ctx, upsertPeriod, p.Year, p.Month, p.BaseDailyTarget, p.Version, p.UpdatedAt)
	return err
}

const deleteExpenses = `DELETE FROM expenses WHERE year = ? AND month = ?`

const deleteDays = `DELETE FROM days WHERE year = ? AND month = ?`

// ClearPeriod removes days and expenses of a period, keeping the period row.
func (q *Queries) ClearPeriod(ctx context.Context, year, month int64) error {
	if _, err := q.db.ExecContext(ctx, deleteExpenses, year, month); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, deleteDays, year, month)
	return err
}

const insertDay = `INSERT INTO days (year, month, day, locked) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertDay(ctx context.Context, year, month int64, d DayRow) error {
	_, err := q.db.ExecContext(ctx, insertDay, year, month, d.Day, d.Locked)
	return err
}

const insertExpense = `
INSERT INTO expenses (id, year, month, day, position, amount, label, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertExpense(ctx context.Context, year, month int64, position int, e ExpenseRow) error {
	_, err := q.db.ExecContext(ctx, insertExpense, e.ID, year, month, e.Day, position, e.Amount, e.Label, e.CreatedAt)
	return err
}
