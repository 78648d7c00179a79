package novelty

import (
	"fmt"

	"github.com/warp/payroll-engine/generic"
)

// ConflictError identifies the existing record a new novelty collides with.
type ConflictError struct {
	EmployeeID string
	Requested  generic.Period
	Existing   Record
	TypeName   string // display name of the existing record's type
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("novelty %s overlaps %s from %s to %s (record %s)",
		e.Requested, e.TypeName, e.Existing.StartDate, e.Existing.EndDate, e.Existing.ID)
}

func (e *ConflictError) Unwrap() error {
	return generic.ErrConflict
}

// LockedError is returned when a finalized record is modified.
type LockedError struct {
	RecordID string
	PeriodID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("novelty %s is locked by payroll period %s", e.RecordID, e.PeriodID)
}

func (e *LockedError) Unwrap() error {
	return generic.ErrLocked
}
