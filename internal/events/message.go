// Package events defines the change notification exchanged between the
// budget service and the sync worker, independent of the broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"dailybudget/internal/core"
)

// LedgerChangedMessage announces that a period's ledger reached Version.
// The worker loads the ledger itself; the message carries no expense data.
type LedgerChangedMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message for key at version.
func NewLedgerChangedMessage(key core.PeriodKey, version int64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Year:      key.Year,
		Month:     key.Month,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// Key returns the period the message refers to.
func (m *LedgerChangedMessage) Key() core.PeriodKey {
	return core.PeriodKey{Year: m.Year, Month: m.Month}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Key().Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Handler processes one ledger change. Returning an error asks the broker
// adapter to redeliver the message.
type Handler func(ctx context.Context, msg *LedgerChangedMessage) error
