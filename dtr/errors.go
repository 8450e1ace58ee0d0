/*
errors.go - Centralized error types for the deduction engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch with errors.Is/errors.As; the Conflict outcome is an
  explicit result type so the confirm-then-retry flow cannot be skipped.

ERROR CATEGORIES:
  1. Validation errors - malformed input on an included half-day
  2. Conflict - save would overwrite an existing date
  3. NotFound - edit/get referencing an absent date
  4. Persistence errors - backing file/database failures

SEE ALSO:
  - calc.go: Returns validation errors
  - store.go: Store contract using these errors
*/
package dtr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an included half-day has missing or
	// inconsistent actual times. Nothing is persisted.
	ErrValidation = errors.New("invalid time entry")

	// ErrConflict is returned when a save would overwrite an existing
	// date without explicit confirmation.
	ErrConflict = errors.New("record already exists for date")

	// ErrNotFound is returned when an edit or get references a date
	// absent from the store.
	ErrNotFound = errors.New("no record for date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes why a time entry cannot be computed.
type ValidationError struct {
	Half   string // "morning" or "afternoon"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s entry: %s", ErrValidation, e.Half, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a save collision and carries the record that
// already occupies the date, so callers can show it before asking the
// user to confirm the overwrite.
type ConflictError struct {
	Date     Date
	Existing DeductionRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict, e.Date)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PersistenceError wraps a backend I/O failure. The in-memory state is
// unchanged when one is returned, so the caller may retry.
type PersistenceError struct {
	Op  string // "load", "persist"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
