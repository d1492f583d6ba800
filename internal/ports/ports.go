// Package ports declares the collaborators the budget service talks to.
// Adapters live in their own packages.
package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

// ErrRemoteAhead is returned by RemoteSync.Push when the remote copy has a
// newer version than the ledger being pushed.
var ErrRemoteAhead = errors.New("remote ledger is newer")

// Ports for outbound adapters.
type (
	// LedgerStore persists one ledger per period.
	LedgerStore interface {
		// Load returns nil, nil when nothing is stored for key.
		Load(ctx context.Context, key core.PeriodKey) (*core.Ledger, error)
		Save(ctx context.Context, l core.Ledger) error
	}

	// RemoteSync mirrors ledgers to a remote store.
	RemoteSync interface {
		Push(ctx context.Context, l core.Ledger) error
		// Pull returns nil, nil when the remote has no copy.
		Pull(ctx context.Context, key core.PeriodKey) (*core.Ledger, error)
	}

	// ChangePublisher announces that a ledger reached a new version.
	ChangePublisher interface {
		PublishLedgerChanged(ctx context.Context, key core.PeriodKey, version int64) error
		Close() error
	}

	// Advisor produces free-text guidance from the locked days of a period.
	Advisor interface {
		Advise(ctx context.Context, snapshot core.Snapshot) (string, error)
	}

	// ReceiptReader extracts the total amount from a receipt image.
	ReceiptReader interface {
		ExtractAmount(ctx context.Context, image []byte, mediaType string) (decimal.Decimal, error)
	}
)
