/*
Package novelty manages absence, leave and overtime records.

PURPOSE:
  A novelty is an event that changes what an employee is paid for a span
  of days: an incapacity, a paid or unpaid leave, vacation days, or hours
  of overtime. Each record references a TypeDefinition that says how the
  absence is paid and whether it removes the transport subsidy.

KEY INVARIANTS:
  - EndDate = StartDate + DayCount - 1
  - No two records of the same employee overlap
  - A record consumed by a closed pay run (LockedBy set) is immutable

  The Scheduler is the only writer that enforces these; the payroll
  calculator trusts them.

QUANTITIES:
  DayCount is always calendar days and drives the date span. Hours is
  the quantity paid by hour-based concepts (overtime and surcharges).
  Older data stored hours in DayCount; when Hours is zero the calculator
  reads DayCount as hours for hour-based concepts.

SEE ALSO:
  - scheduler.go: Validation on create and update
  - errors.go: ConflictError and LockedError
*/
package novelty

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

// TypeDefinition is static reference data describing a kind of novelty.
type TypeDefinition struct {
	Code                     string          `json:"code"`
	Name                     string          `json:"name"`
	ExternalCode             string          `json:"external_code"`
	PaymentPercentage        decimal.Decimal `json:"payment_percentage"` // fraction of the daily wage, 0.6667 = 66.67%
	BlocksTransportAllowance bool            `json:"blocks_transport_allowance"`
	CreditsHealth            bool            `json:"credits_health"`
	CreditsPension           bool            `json:"credits_pension"`
	CreditsWorkRisk          bool            `json:"credits_work_risk"`
}

// Validate checks a definition before it is stored.
func (t TypeDefinition) Validate() error {
	if t.Code == "" {
		return &generic.ValidationError{Field: "code", Message: "is required"}
	}
	if t.Name == "" {
		return &generic.ValidationError{Field: "name", Message: fmt.Sprintf("novelty type %s needs a name", t.Code)}
	}
	if t.PaymentPercentage.IsNegative() || t.PaymentPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return &generic.ValidationError{Field: "payment_percentage", Message: "must be a fraction between 0 and 1"}
	}
	return nil
}

// Record is one novelty registered for an employee.
type Record struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	TypeCode   string          `json:"type_code"`
	StartDate  generic.Date    `json:"start_date"`
	EndDate    generic.Date    `json:"end_date"`
	DayCount   int             `json:"day_count"`
	Hours      decimal.Decimal `json:"hours"`
	LockedBy   string          `json:"locked_by,omitempty"` // payroll period that finalized it
	CreatedAt  time.Time       `json:"created_at"`
}

// Span returns [StartDate, EndDate].
func (r Record) Span() generic.Period {
	return generic.Period{Start: r.StartDate, End: r.EndDate}
}

// Locked reports whether a closed pay run consumed the record.
func (r Record) Locked() bool { return r.LockedBy != "" }

// Input is the caller-supplied part of a record.
type Input struct {
	EmployeeID string          `json:"employee_id"`
	TypeCode   string          `json:"type_code"`
	StartDate  generic.Date    `json:"start_date"`
	DayCount   int             `json:"day_count"`
	Hours      decimal.Decimal `json:"hours"`
}

// =============================================================================
// STORE
// =============================================================================

// TypeStore looks novelty types up by code.
type TypeStore interface {
	// TypeByCode returns generic.ErrNotFound (wrapped) for unknown codes.
	TypeByCode(ctx context.Context, code string) (*TypeDefinition, error)
}

// Store is the persistence surface for novelty records.
type Store interface {
	TypeStore

	// Overlapping returns the employee's records intersecting span,
	// skipping excludeID when it is not empty.
	Overlapping(ctx context.Context, employeeID string, span generic.Period, excludeID string) ([]Record, error)

	// RecordsWithin returns the employee's records lying fully inside span.
	RecordsWithin(ctx context.Context, employeeID string, span generic.Period) ([]Record, error)

	GetRecord(ctx context.Context, id string) (*Record, error)

	// SaveRecord inserts or replaces by ID.
	SaveRecord(ctx context.Context, r Record) error
}

// Locker marks records consumed by a closed pay run.
type Locker interface {
	// LockRecords sets LockedBy on every unlocked record lying fully inside span
	// and returns how many were locked.
	LockRecords(ctx context.Context, span generic.Period, periodID string) (int, error)
}

// TypeWriter persists novelty types.
type TypeWriter interface {
	SaveType(ctx context.Context, t TypeDefinition) error
}
