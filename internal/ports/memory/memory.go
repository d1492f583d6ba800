// Package memory is an in-process LedgerStore used for development and tests.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dailybudget/internal/core"
)

type Store struct {
	mu      sync.Mutex
	ledgers map[core.PeriodKey]core.Ledger
}

func New() *Store {
	return &Store{ledgers: make(map[core.PeriodKey]core.Ledger)}
}

// NewFromDir seeds the store from ledger documents named YYYY-MM.json in base.
// Unreadable or malformed files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		return s
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(base, e.Name()))
		if err != nil {
			continue
		}
		l, err := core.UnmarshalLedger(data)
		if err != nil {
			continue
		}
		s.ledgers[l.Config.Key] = l
	}
	return s
}

// Load returns a copy of the stored ledger.
func (s *Store) Load(_ context.Context, key core.PeriodKey) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[key]
	if !ok {
		return nil, nil
	}
	c := l.Clone()
	return &c, nil
}

// Save stores a copy of the ledger, replacing any previous version.
func (s *Store) Save(_ context.Context, l core.Ledger) error {
	if err := l.Config.Key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.Config.Key] = l.Clone()
	return nil
}

// Keys lists stored periods in chronological order.
func (s *Store) Keys() []core.PeriodKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]core.PeriodKey, 0, len(s.ledgers))
	for k := range s.ledgers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
	return keys
}
