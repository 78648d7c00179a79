/*
Package socialsecurity computes the contribution base (IBC) and the
health, pension and occupational-risk contributions derived from it.

PURPOSE:
  IBC (ingreso base de cotización) is the capped earnings base on which
  contributions are levied.

    base = integral salary ? total x 0.70 : total
    cap  = 25 x MIN_WAGE in force at the start of the period
    ibc  = min(base, cap)

  Employee health and pension rates are configurable (4% by default);
  employer health (8.5%), employer pension (12%) and the occupational
  risk table by class are fixed here.

ROUNDING:
  Each contribution is rounded to the currency's minor unit, half-up,
  once. The IBC itself is not rounded.

  Both functions are pure. The caller resolves MIN_WAGE once for the
  period and passes it in, so a fallback is reported once.

SEE ALSO:
  - liquidation/calculator.go: Builds the base and emits the deductions
  - config/config.go: Employee rate overrides
*/
package socialsecurity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

var (
	integralSalarialShare = decimal.RequireFromString("0.70")
	ibcCapMinWages        = decimal.NewFromInt(25)

	healthEmployerRate  = decimal.RequireFromString("0.085")
	pensionEmployerRate = decimal.RequireFromString("0.12")

	workRiskRates = map[int]decimal.Decimal{
		1: decimal.RequireFromString("0.00522"),
		2: decimal.RequireFromString("0.01044"),
		3: decimal.RequireFromString("0.02436"),
		4: decimal.RequireFromString("0.04350"),
		5: decimal.RequireFromString("0.06960"),
	}
)

// Rates holds the configurable employee-side rates, as fractions.
type Rates struct {
	HealthEmployee  decimal.Decimal
	PensionEmployee decimal.Decimal
}

// DefaultRates returns 4% health and 4% pension.
func DefaultRates() Rates {
	return Rates{
		HealthEmployee:  decimal.RequireFromString("0.04"),
		PensionEmployee: decimal.RequireFromString("0.04"),
	}
}

// Validate rejects rates outside [0, 1].
func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{"health_employee_rate": r.HealthEmployee, "pension_employee_rate": r.PensionEmployee} {
		if v.IsNegative() || v.GreaterThan(one) {
			return &generic.ValidationError{Field: name, Message: fmt.Sprintf("must be a fraction between 0 and 1, got %s", v)}
		}
	}
	return nil
}

// Contributions is the full set of amounts levied on one IBC.
type Contributions struct {
	HealthEmployee   decimal.Decimal `json:"health_employee"`
	PensionEmployee  decimal.Decimal `json:"pension_employee"`
	HealthEmployer   decimal.Decimal `json:"health_employer"`
	PensionEmployer  decimal.Decimal `json:"pension_employer"`
	WorkRiskEmployer decimal.Decimal `json:"work_risk_employer"`
}

// EmployeeTotal is what is withheld from the employee.
func (c Contributions) EmployeeTotal() decimal.Decimal {
	return c.HealthEmployee.Add(c.PensionEmployee)
}

// EmployerTotal is the employer's cost on top of gross pay.
func (c Contributions) EmployerTotal() decimal.Decimal {
	return generic.Sum(c.HealthEmployer, c.PensionEmployer, c.WorkRiskEmployer)
}

// =============================================================================
// PURE FUNCTIONS
// =============================================================================

// ComputeIBC applies the integral-salary share and the 25 minimum wage cap.
func ComputeIBC(totalEarned decimal.Decimal, integral bool, minWage decimal.Decimal) decimal.Decimal {
	base := totalEarned
	if integral {
		base = totalEarned.Mul(integralSalarialShare)
	}
	return decimal.Min(base, minWage.Mul(ibcCapMinWages))
}

// WorkRiskRate returns the occupational-risk rate of a class; unknown classes use class 1.
func WorkRiskRate(riskClass int) decimal.Decimal {
	if rate, ok := workRiskRates[riskClass]; ok {
		return rate
	}
	return workRiskRates[1]
}

// ComputeContributions levies every rate on ibc.
func ComputeContributions(ibc decimal.Decimal, riskClass int, rates Rates) Contributions {
	return Contributions{
		HealthEmployee:   generic.RoundCurrency(ibc.Mul(rates.HealthEmployee)),
		PensionEmployee:  generic.RoundCurrency(ibc.Mul(rates.PensionEmployee)),
		HealthEmployer:   generic.RoundCurrency(ibc.Mul(healthEmployerRate)),
		PensionEmployer:  generic.RoundCurrency(ibc.Mul(pensionEmployerRate)),
		WorkRiskEmployer: generic.RoundCurrency(ibc.Mul(WorkRiskRate(riskClass))),
	}
}
