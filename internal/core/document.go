package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerDocument is the serialized form of a Ledger shared by every storage
// and sync adapter.
type LedgerDocument struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	BaseDailyTarget decimal.Decimal `json:"base_daily_target"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Days            []DayDocument   `json:"days"`
}

type DayDocument struct {
	Day      int               `json:"day"`
	Locked   bool              `json:"locked"`
	Expenses []ExpenseDocument `json:"expenses"`
}

type ExpenseDocument struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Label     string          `json:"label"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToDocument converts a ledger to its serialized form.
func ToDocument(l Ledger) LedgerDocument {
	doc := LedgerDocument{
		Year:            l.Config.Key.Year,
		Month:           l.Config.Key.Month,
		BaseDailyTarget: l.Config.BaseDailyTarget,
		Version:         l.Version,
		UpdatedAt:       l.UpdatedAt,
		Days:            make([]DayDocument, len(l.Days)),
	}
	for i, d := range l.Days {
		dd := DayDocument{Day: d.Day, Locked: d.Locked, Expenses: make([]ExpenseDocument, len(d.Expenses))}
		for j, e := range d.Expenses {
			dd.Expenses[j] = ExpenseDocument{ID: e.ID, Amount: e.Amount, Label: e.Label, CreatedAt: e.CreatedAt}
		}
		doc.Days[i] = dd
	}
	return doc
}

// Ledger converts the document back. Structural problems such as a wrong day
// count are left for OpenPeriod to detect; only unreadable values fail here.
func (doc LedgerDocument) Ledger() (Ledger, error) {
	l := Ledger{
		Config: PeriodConfig{
			Key:             PeriodKey{Year: doc.Year, Month: doc.Month},
			BaseDailyTarget: doc.BaseDailyTarget,
		},
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		Days:      make([]DayRecord, len(doc.Days)),
	}
	for i, dd := range doc.Days {
		d := DayRecord{Day: dd.Day}
		for _, ed := range dd.Expenses {
			if ed.Amount.IsNegative() {
				return Ledger{}, fmt.Errorf("%w: day %d expense %s has negative amount", ErrMalformedLedger, dd.Day, ed.ID)
			}
			d.Expenses = append(d.Expenses, ExpenseRecord{ID: ed.ID, Amount: ed.Amount, Label: ed.Label, CreatedAt: ed.CreatedAt})
		}
		d.Locked = len(d.Expenses) > 0
		l.Days[i] = d
	}
	return l, nil
}

// MarshalLedger encodes a ledger as JSON.
func MarshalLedger(l Ledger) ([]byte, error) {
	return json.Marshal(ToDocument(l))
}

// UnmarshalLedger decodes a ledger from JSON.
func UnmarshalLedger(data []byte) (Ledger, error) {
	var doc LedgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	return doc.Ledger()
}
