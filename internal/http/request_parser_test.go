package http

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
)

func TestAmountField_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		set     bool
		wantErr bool
	}{
		{`"12.50"`, "12.5", true, false},
		{`"12,5"`, "12.5", true, false},
		{`7`, "7", true, false},
		{`3.456`, "3.46", true, false},
		{`null`, "0", false, false},
		{`"-1"`, "", false, true},
		{`"abc"`, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a amountField
			err := json.Unmarshal([]byte(tt.in), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !core.IsInvalidInput(err) {
					t.Errorf("error %v should be a validation error", err)
				}
				return
			}
			if a.set != tt.set || !a.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Unmarshal(%s) = %s (set %v), want %s (set %v)", tt.in, a.Decimal, a.set, tt.want, tt.set)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  coffee  ", "coffee"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak", "line\nbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
