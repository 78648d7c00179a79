/*
Package legal resolves time-versioned legal constants.

PURPOSE:
  Minimum wage, transport subsidy, maximum weekly hours, the tax unit
  (UVT) and the holiday surcharge change by decree. Each change is a new
  Parameter row with its own validity range, so a liquidation for a past
  period sees the values that were in force back then.

RESOLUTION:
  A row qualifies for (key, date) when ValidFrom <= date and ValidTo is
  nil or ValidTo >= date. Overlapping rows are an authoring error in the
  reference data; when it happens the latest ValidFrom wins and, on a tie,
  the most recently inserted row (highest Seq) wins.

  When nothing qualifies the resolver answers from the fallback table.
  That is never an error, but every fallback is reported to the
  configured FallbackObserver so stale legal data can be detected.

SEE ALSO:
  - resolver.go: Resolver and FallbackObserver
  - defaults.go: Fallback table and the shipped 2026 parameters
*/
package legal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Key names a legal constant.
type Key string

const (
	MinWage          Key = "MIN_WAGE"
	TransportSubsidy Key = "TRANSPORT_SUBSIDY"
	MaxWeeklyHours   Key = "MAX_WEEKLY_HOURS"
	TaxUnitValue     Key = "TAX_UNIT_VALUE"
	HolidaySurcharge Key = "HOLIDAY_SURCHARGE"
)

// Keys lists every known key in a stable order.
func Keys() []Key {
	return []Key{MinWage, TransportSubsidy, MaxWeeklyHours, TaxUnitValue, HolidaySurcharge}
}

// ParseKey validates a key read from reference data.
func ParseKey(s string) (Key, error) {
	for _, k := range Keys() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &generic.ValidationError{Field: "key", Message: fmt.Sprintf("unknown legal parameter %q", s)}
}

// Parameter is one legal regime for a key.
type Parameter struct {
	Key       Key             `json:"key"`
	Value     decimal.Decimal `json:"value"`
	ValidFrom generic.Date    `json:"valid_from"`
	ValidTo   *generic.Date   `json:"valid_to,omitempty"` // nil = open-ended
	Seq       int64           `json:"-"`                  // insertion order, assigned by the store
}

// AppliesOn reports whether the row is in force on d.
func (p Parameter) AppliesOn(d generic.Date) bool {
	if p.ValidFrom.After(d) {
		return false
	}
	return p.ValidTo == nil || p.ValidTo.AfterOrEqual(d)
}

// Validate checks a row before it is stored.
func (p Parameter) Validate() error {
	if _, err := ParseKey(string(p.Key)); err != nil {
		return err
	}
	if p.ValidFrom.IsZero() {
		return &generic.ValidationError{Field: "valid_from", Message: "is required"}
	}
	if p.ValidTo != nil && p.ValidTo.Before(p.ValidFrom) {
		return &generic.ValidationError{Field: "valid_to", Message: "is before valid_from"}
	}
	if p.Value.IsNegative() {
		return &generic.ValidationError{Field: "value", Message: "must not be negative"}
	}
	return nil
}

// Store is the query surface the resolver needs.
type Store interface {
	// ParametersByKey returns every row for key, in any order.
	ParametersByKey(ctx context.Context, key Key) ([]Parameter, error)
}

// Writer persists parameter rows. Implementations assign Seq.
type Writer interface {
	SaveParameter(ctx context.Context, p Parameter) error
}
