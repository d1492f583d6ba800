// Package postgres stores each ledger as a JSONB document, one row per period.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"dailybudget/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
	year       INTEGER     NOT NULL,
	month      INTEGER     NOT NULL CHECK (month BETWEEN 1 AND 12),
	data       JSONB       NOT NULL,
	version    BIGINT      NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (year, month)
);
`

const loadLedger = `SELECT data FROM ledgers WHERE year = $1 AND month = $2`

const saveLedger = `
INSERT INTO ledgers (year, month, data, version, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (year, month) DO UPDATE SET
	data = EXCLUDED.data,
	version = EXCLUDED.version,
	updated_at = EXCLUDED.updated_at
`

const listKeys = `SELECT year, month FROM ledgers ORDER BY year, month`

// Options tunes the connection retry loop.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{MaxRetries: 10, RetryDelay: 2 * time.Second}
}

type Store struct {
	db *sql.DB
}

// Open connects to databaseURL, retrying until the server answers, and
// creates the schema.
func Open(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	config, err := pgx.ParseConfig(NormalizeURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	var db *sql.DB
	for i := 0; i < opts.MaxRetries; i++ {
		db = stdlib.OpenDB(*config)
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		db.Close()
		if i == opts.MaxRetries-1 {
			return nil, fmt.Errorf("connect to database after %d attempts: %w", opts.MaxRetries, err)
		}
		slog.WarnContext(ctx, "Database not ready, retrying",
			"attempt", i+1,
			"max_attempts", opts.MaxRetries,
			"delay", opts.RetryDelay,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection; the schema is assumed to exist.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements ports.LedgerStore.
func (s *Store) Load(ctx context.Context, key core.PeriodKey) (*core.Ledger, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, loadLedger, key.Year, key.Month).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	l, err := core.UnmarshalLedger(data)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	return &l, nil
}

// Save implements ports.LedgerStore.
func (s *Store) Save(ctx context.Context, l core.Ledger) error {
	key := l.Config.Key
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := core.MarshalLedger(l)
	if err != nil {
		return fmt.Errorf("encode ledger %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, saveLedger, key.Year, key.Month, data, l.Version, l.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("save ledger %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored periods in chronological order.
func (s *Store) Keys(ctx context.Context) ([]core.PeriodKey, error) {
	rows, err := s.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()
	var keys []core.PeriodKey
	for rows.Next() {
		var k core.PeriodKey
		if err := rows.Scan(&k.Year, &k.Month); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// NormalizeURL rewrites postgresql:// to postgres:// and defaults sslmode to disable.
func NormalizeURL(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL += separator + "sslmode=disable"
	}
	return databaseURL
}
