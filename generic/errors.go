/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these with additional context and expose
  structured errors that unwrap to the sentinels below.

ERROR CATEGORIES:
  1. Validation errors - Bad input rejected before any computation
  2. Conflict errors   - Overlapping novelty records
  3. State errors      - Locked novelties, closed pay periods
  4. Store errors      - Missing rows, database failures

  Missing legal parameters are NOT errors. The legal package resolves
  them through its fallback table and reports the fallback to observers.

USAGE:
  if errors.Is(err, generic.ErrConflict) {
      var conflict *novelty.ConflictError
      errors.As(err, &conflict)
  }

SEE ALSO:
  - novelty/errors.go: ConflictError and LockedError
  - liquidation/runner.go: ErrPeriodClosed guard
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (zero day count, unknown code).
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a novelty overlaps an existing one.
	ErrConflict = errors.New("novelty overlaps an existing record")

	// ErrLocked is returned when a novelty consumed by a closed pay run is modified.
	ErrLocked = errors.New("novelty is locked by a closed pay run")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrPeriodClosed is returned when re-liquidating a paid or reported period.
	ErrPeriodClosed = errors.New("payroll period is closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError identifies the missing row.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrLocked) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrPeriodClosed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
