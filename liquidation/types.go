/*
Package liquidation computes pay runs.

PURPOSE:
  Calculator produces every earning and deduction line for one employee
  over one period. Runner applies it to every eligible employee of a
  payroll period and replaces the period's documents atomically.

PIPELINE (Calculator.Liquidate):
  1. Commercial days of the period (30/360)
  2. Novelties lying fully inside the period, in start-date order
  3. Absence days and paid days
  4. Base salary line
  5. Transport subsidy line, when eligible
  6. One line per novelty, priced by its concept variant
  7. Social-security base from the salarial earning lines
  8. IBC and contributions
  9. Health and pension deduction lines
  10. Totals

JUDGEMENT CALLS:
  - Hour-based novelties (overtime, surcharges) are paid on top of the
    salary; they are not absence days and do not reduce paid days.
  - Lines are rounded once, to two decimals, half-up.
  - A missing legal parameter never fails a liquidation. The result
    lists the keys that were answered by the fallback table so the
    caller can log them.

SEE ALSO:
  - calculator.go: The pipeline
  - runner.go: Period runs, cancellation, closing
  - period.go: Payroll periods and stored documents
*/
package liquidation

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/socialsecurity"
)

// =============================================================================
// EMPLOYEE - Read-only view owned by the HR subsystem
// =============================================================================

// Employee carries what the engine needs to pay someone.
type Employee struct {
	ID                         string          `json:"id"`
	Name                       string          `json:"name"`
	ContractType               string          `json:"contract_type"`
	StartDate                  generic.Date    `json:"start_date"`
	EndDate                    *generic.Date   `json:"end_date,omitempty"`
	BaseSalary                 decimal.Decimal `json:"base_salary"`
	TransportAllowanceEligible bool            `json:"transport_allowance_eligible"`
	RiskClass                  int             `json:"risk_class"`
	IntegralSalary             bool            `json:"integral_salary"`
	Active                     bool            `json:"active"`
}

// EmployedDuring reports whether the contract overlaps p.
func (e Employee) EmployedDuring(p generic.Period) bool {
	if !e.Active || e.StartDate.After(p.End) {
		return false
	}
	return e.EndDate == nil || e.EndDate.AfterOrEqual(p.Start)
}

// Validate checks an employee row before it is stored.
func (e Employee) Validate() error {
	if e.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}
	if e.BaseSalary.IsNegative() {
		return &generic.ValidationError{Field: "base_salary", Message: "must not be negative"}
	}
	if e.StartDate.IsZero() {
		return &generic.ValidationError{Field: "start_date", Message: "is required"}
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return &generic.ValidationError{Field: "end_date", Message: "is before start_date"}
	}
	return nil
}

// EmployeeStore is the read surface over employees.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// EmployeeWriter persists employees.
type EmployeeWriter interface {
	SaveEmployee(ctx context.Context, e Employee) error
}

// =============================================================================
// RESULT
// =============================================================================

// Line is one computed pay-slip line.
type Line struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Kind        concept.Kind    `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
	Salarial    bool            `json:"salarial"`
	NoveltyID   string          `json:"novelty_id,omitempty"`
}

// Totals aggregates a line set.
type Totals struct {
	WorkedDays      int             `json:"worked_days"`  // paid days after absences
	NoveltyDays     int             `json:"novelty_days"` // absence days only; hour-based records are excluded
	AccruedTotal    decimal.Decimal `json:"accrued_total"`
	DeductionsTotal decimal.Decimal `json:"deductions_total"`
	NetTotal        decimal.Decimal `json:"net_total"`
}

// Result is the outcome of one liquidation.
type Result struct {
	EmployeeID    string                       `json:"employee_id"`
	Period        generic.Period               `json:"period"`
	Lines         []Line                       `json:"lines"`
	Totals        Totals                       `json:"totals"`
	IBC           decimal.Decimal              `json:"ibc"`
	Contributions socialsecurity.Contributions `json:"contributions"`
	FallbackKeys  []legal.Key                  `json:"fallback_keys,omitempty"`
}

// totalize sums line values by kind.
func totalize(lines []Line) (accrued, deductions decimal.Decimal) {
	accrued, deductions = decimal.Zero, decimal.Zero
	for _, l := range lines {
		switch l.Kind {
		case concept.KindDeduction:
			deductions = deductions.Add(l.Value)
		default:
			accrued = accrued.Add(l.Value)
		}
	}
	return accrued, deductions
}
