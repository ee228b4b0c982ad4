package learning

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned (wrapped) when a feedback event, stat row or
// artifact does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed feedback input. Nothing is persisted when
// it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StoreError reports a persistence failure (store unavailable).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreUnavailable reports whether err came from the persistence layer.
func IsStoreUnavailable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsValidation reports whether err is a feedback validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StoreError{Op: op, Err: err}
}
