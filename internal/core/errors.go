package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidTarget   = errors.New("invalid daily target")
	ErrLabelTooLong    = errors.New("label too long (max 200 characters)")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrMalformedLedger = errors.New("malformed ledger")
)

// ValidationError marks input that was rejected at the boundary. The ledger
// passed to the failing operation is left untouched.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsInvalidInput reports whether err was caused by rejected user input.
func IsInvalidInput(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
