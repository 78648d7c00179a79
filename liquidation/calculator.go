package liquidation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/novelty"
	"github.com/warp/payroll-engine/socialsecurity"
)

var (
	incapacityShare      = decimal.RequireFromString("0.6667")
	transportSalaryLimit = decimal.NewFromInt(2) // in minimum wages
	one                  = decimal.NewFromInt(1)
)

// NoveltySource is what the calculator reads about novelties.
type NoveltySource interface {
	novelty.TypeStore
	RecordsWithin(ctx context.Context, employeeID string, span generic.Period) ([]novelty.Record, error)
}

// Calculator liquidates one employee over one period. It holds no
// per-call state and is safe for concurrent use.
type Calculator struct {
	employees EmployeeStore
	novelties NoveltySource
	catalog   concept.Catalog
	resolver  *legal.Resolver
	rates     socialsecurity.Rates
}

// NewCalculator wires the calculator to its reference data.
func NewCalculator(employees EmployeeStore, novelties NoveltySource, catalog concept.Catalog, resolver *legal.Resolver, rates socialsecurity.Rates) *Calculator {
	return &Calculator{
		employees: employees,
		novelties: novelties,
		catalog:   catalog,
		resolver:  resolver,
		rates:     rates,
	}
}

// Liquidate loads the employee and runs the pipeline over period.
func (c *Calculator) Liquidate(ctx context.Context, employeeID string, period generic.Period) (*Result, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	emp, err := c.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee %s: %w", employeeID, err)
	}
	return c.LiquidateEmployee(ctx, *emp, period)
}

// pricedNovelty is a record with its reference data resolved.
type pricedNovelty struct {
	record  novelty.Record
	def     *novelty.TypeDefinition
	concept *concept.Concept // nil when no concept maps the type's external code
}

func (p pricedNovelty) hourBased() bool {
	return p.concept != nil && p.concept.Variant.HourBased()
}

// LiquidateEmployee runs the pipeline for an already loaded employee.
func (c *Calculator) LiquidateEmployee(ctx context.Context, emp Employee, period generic.Period) (*Result, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	res := &Result{EmployeeID: emp.ID, Period: period}

	minWage, err := c.param(ctx, res, legal.MinWage, period.Start)
	if err != nil {
		return nil, err
	}

	workedDaysRaw := calendar.PeriodDays(period)

	novelties, err := c.loadNovelties(ctx, emp.ID, period)
	if err != nil {
		return nil, err
	}

	noveltyDays, blockedDays := 0, 0
	for _, n := range novelties {
		if !n.hourBased() {
			noveltyDays += n.record.DayCount
		}
		if n.def.BlocksTransportAllowance {
			blockedDays += n.record.DayCount
		}
	}
	paidDays := workedDaysRaw - noveltyDays
	if paidDays < 0 {
		paidDays = 0
	}

	var lines []Line

	// Base salary
	if paidDays > 0 {
		line, err := c.fixedLine(ctx, concept.CodeBaseSalary, concept.CodeBaseSalary, "Sueldo Básico", true)
		if err != nil {
			return nil, err
		}
		line.Quantity = decimal.NewFromInt(int64(paidDays))
		line.Value = generic.Prorate(emp.BaseSalary, line.Quantity, generic.CommercialMonthDays)
		lines = append(lines, line)
	}

	// Transport subsidy
	if emp.TransportAllowanceEligible && emp.BaseSalary.LessThanOrEqual(minWage.Mul(transportSalaryLimit)) {
		if subsidyDays := workedDaysRaw - blockedDays; subsidyDays > 0 {
			subsidy, err := c.param(ctx, res, legal.TransportSubsidy, period.Start)
			if err != nil {
				return nil, err
			}
			line, err := c.fixedLine(ctx, concept.CodeTransport, concept.LineTransportAllowance, "Auxilio de Transporte", false)
			if err != nil {
				return nil, err
			}
			line.Quantity = decimal.NewFromInt(int64(subsidyDays))
			line.Value = generic.Prorate(subsidy, line.Quantity, generic.CommercialMonthDays)
			lines = append(lines, line)
		}
	}

	// Novelties
	for _, n := range novelties {
		lines = append(lines, noveltyLine(emp, n))
	}

	// Social security
	baseIBC := decimal.Zero
	for _, l := range lines {
		if l.Kind == concept.KindEarning && l.Salarial && !concept.ExcludedFromIBC(l.Code) {
			baseIBC = baseIBC.Add(l.Value)
		}
	}
	res.IBC = socialsecurity.ComputeIBC(baseIBC, emp.IntegralSalary, minWage)
	res.Contributions = socialsecurity.ComputeContributions(res.IBC, emp.RiskClass, c.rates)

	health, err := c.fixedLine(ctx, concept.CodeHealthEmployee, concept.CodeHealthEmployee, "Aporte Salud", false)
	if err != nil {
		return nil, err
	}
	health.Kind = concept.KindDeduction
	health.Quantity = decimal.Zero
	health.Value = res.Contributions.HealthEmployee

	pension, err := c.fixedLine(ctx, concept.CodePensionEmployee, concept.CodePensionEmployee, "Aporte Pensión", false)
	if err != nil {
		return nil, err
	}
	pension.Kind = concept.KindDeduction
	pension.Quantity = decimal.Zero
	pension.Value = res.Contributions.PensionEmployee

	lines = append(lines, health, pension)

	accrued, deductions := totalize(lines)
	res.Lines = lines
	res.Totals = Totals{
		WorkedDays:      paidDays,
		NoveltyDays:     noveltyDays,
		AccruedTotal:    accrued,
		DeductionsTotal: deductions,
		NetTotal:        accrued.Sub(deductions),
	}
	return res, nil
}

// loadNovelties fetches the period's records in start-date order and
// resolves their type and concept.
func (c *Calculator) loadNovelties(ctx context.Context, employeeID string, period generic.Period) ([]pricedNovelty, error) {
	records, err := c.novelties.RecordsWithin(ctx, employeeID, period)
	if err != nil {
		return nil, fmt.Errorf("load novelties for %s: %w", employeeID, err)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].StartDate.Equal(records[j].StartDate) {
			return records[i].StartDate.Before(records[j].StartDate)
		}
		return records[i].ID < records[j].ID
	})

	out := make([]pricedNovelty, 0, len(records))
	for _, rec := range records {
		def, err := c.novelties.TypeByCode(ctx, rec.TypeCode)
		if err != nil {
			return nil, fmt.Errorf("novelty %s type %s: %w", rec.ID, rec.TypeCode, err)
		}
		con, _, err := c.catalog.FindByCode(ctx, def.ExternalCode)
		if err != nil {
			return nil, err
		}
		out = append(out, pricedNovelty{record: rec, def: def, concept: con})
	}
	return out, nil
}

// fixedLine builds the skeleton of a line the calculator always emits,
// taking code and name from the catalog when the concept exists.
func (c *Calculator) fixedLine(ctx context.Context, conceptCode, lineCode, description string, salarial bool) (Line, error) {
	line := Line{Code: lineCode, Description: description, Kind: concept.KindEarning, Salarial: salarial}
	con, ok, err := c.catalog.FindByCode(ctx, conceptCode)
	if err != nil {
		return Line{}, err
	}
	if ok {
		line.Code = con.LineCode()
		line.Description = con.Name
		line.Kind = con.Kind
		line.Salarial = con.Salarial
	}
	return line, nil
}

// param resolves a legal constant and records fallbacks on res.
func (c *Calculator) param(ctx context.Context, res *Result, key legal.Key, on generic.Date) (decimal.Decimal, error) {
	lookup, err := c.resolver.Lookup(ctx, key, on)
	if err != nil {
		return decimal.Zero, err
	}
	if lookup.Fallback {
		res.FallbackKeys = append(res.FallbackKeys, key)
	}
	return lookup.Value, nil
}

// noveltyLine prices one record according to its concept variant.
func noveltyLine(emp Employee, n pricedNovelty) Line {
	days := decimal.NewFromInt(int64(n.record.DayCount))
	base := emp.BaseSalary

	line := Line{
		Code:        n.def.ExternalCode,
		Description: n.def.Name,
		Kind:        concept.KindEarning,
		Quantity:    days,
		Salarial:    true,
		NoveltyID:   n.record.ID,
	}
	if line.Code == "" {
		line.Code = n.def.Code
	}

	if n.concept == nil {
		line.Value = generic.Prorate(base.Mul(n.def.PaymentPercentage), days, generic.CommercialMonthDays)
		return line
	}

	con := n.concept
	line.Code = con.LineCode()
	line.Kind = con.Kind
	line.Salarial = con.Salarial

	switch con.Variant {
	case concept.VariantOvertime, concept.VariantSurcharge:
		hours := n.record.Hours
		if hours.IsZero() {
			hours = days
		}
		multiplier := generic.PercentToFraction(con.Factor)
		if con.Variant == concept.VariantOvertime {
			multiplier = one.Add(multiplier)
		}
		line.Quantity = hours
		line.Value = generic.Prorate(base.Mul(multiplier), hours, generic.MonthlyHours)
	case concept.VariantIncapacity:
		line.Value = generic.Prorate(base.Mul(incapacityShare), days, generic.CommercialMonthDays)
	case concept.VariantLeave:
		line.Value = generic.Prorate(base, days, generic.CommercialMonthDays)
	default:
		line.Value = generic.Prorate(base.Mul(n.def.PaymentPercentage), days, generic.CommercialMonthDays)
	}
	return line
}
