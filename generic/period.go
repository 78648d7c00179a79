package generic

import "fmt"

// =============================================================================
// PERIOD - Inclusive date range used for pay runs and novelty intervals
// =============================================================================

// Period is the closed interval [Start, End].
//
// Examples:
//   - First fortnight of May 2026: May 1 - May 15
//   - Monthly run for August 2026: Aug 1 - Aug 31
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewPeriod builds a period and rejects inverted ranges.
func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate returns ErrInvalidPeriod when End is before Start or either bound is unset.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidPeriod)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// ContainsPeriod reports whether other lies fully inside p.
func (p Period) ContainsPeriod(other Period) bool {
	return other.Start.AfterOrEqual(p.Start) && other.End.BeforeOrEqual(p.End)
}

// Overlaps is the interval intersection test: a.Start <= b.End && a.End >= b.Start.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
