package liquidation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/generic/store"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/novelty"
	"github.com/warp/payroll-engine/socialsecurity"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testEnv struct {
	mem       *store.Memory
	calc      *liquidation.Calculator
	scheduler *novelty.Scheduler
	fallbacks *legal.FallbackCounter
}

// newTestEnv wires a calculator over an empty memory store: every legal
// parameter comes from the fallback table unless the test saves rows.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	for _, def := range novelty.DefaultTypes() {
		require.NoError(t, mem.SaveType(ctx, def))
	}
	catalog, err := concept.NewStaticCatalog(concept.DefaultConcepts())
	require.NoError(t, err)

	counter := legal.NewFallbackCounter()
	resolver := legal.NewResolver(mem, counter)
	return &testEnv{
		mem:       mem,
		calc:      liquidation.NewCalculator(mem, mem, catalog, resolver, socialsecurity.DefaultRates()),
		scheduler: novelty.NewScheduler(mem, mem),
		fallbacks: counter,
	}
}

func (e *testEnv) loadDefaultParameters(t *testing.T) {
	t.Helper()
	for _, p := range legal.DefaultParameters() {
		require.NoError(t, e.mem.SaveParameter(context.Background(), p))
	}
}

func (e *testEnv) employee(t *testing.T, id, salary string, transport bool) liquidation.Employee {
	t.Helper()
	emp := liquidation.Employee{
		ID:                         id,
		Name:                       "Employee " + id,
		ContractType:               "INDEFINIDO",
		StartDate:                  generic.MustParseDate("2024-01-15"),
		BaseSalary:                 decimal.RequireFromString(salary),
		TransportAllowanceEligible: transport,
		RiskClass:                  1,
		Active:                     true,
	}
	require.NoError(t, e.mem.SaveEmployee(context.Background(), emp))
	return emp
}

func (e *testEnv) novelty(t *testing.T, employeeID, typeCode, start string, days int, hours string) *novelty.Record {
	t.Helper()
	in := novelty.Input{EmployeeID: employeeID, TypeCode: typeCode, StartDate: generic.MustParseDate(start), DayCount: days}
	if hours != "" {
		in.Hours = decimal.RequireFromString(hours)
	}
	rec, err := e.scheduler.Create(context.Background(), in)
	require.NoError(t, err)
	return rec
}

func august() generic.Period {
	return generic.Period{Start: generic.MustParseDate("2026-08-01"), End: generic.MustParseDate("2026-08-30")}
}

func findLine(t *testing.T, res *liquidation.Result, code string) liquidation.Line {
	t.Helper()
	for _, l := range res.Lines {
		if l.Code == code {
			return l
		}
	}
	t.Fatalf("no line %s in %v", code, lineCodes(res))
	return liquidation.Line{}
}

func hasLine(res *liquidation.Result, code string) bool {
	for _, l := range res.Lines {
		if l.Code == code {
			return true
		}
	}
	return false
}

func lineCodes(res *liquidation.Result) []string {
	codes := make([]string, 0, len(res.Lines))
	for _, l := range res.Lines {
		codes = append(codes, l.Code)
	}
	return codes
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func assertBalanced(t *testing.T, res *liquidation.Result) {
	t.Helper()
	assert.True(t, res.Totals.NetTotal.Equal(res.Totals.AccruedTotal.Sub(res.Totals.DeductionsTotal)), "net = accrued - deductions")
}

// =============================================================================
// REFERENCE SCENARIO
// =============================================================================

func TestLiquidate_IncapacityReferenceCase(t *testing.T) {
	// GIVEN: salary 3,000,000, Aug 1-30, a 3-day general incapacity
	// WHEN: liquidating with no legal rows stored
	// THEN: 27 paid days, incapacity paid at 66.67%, 4% + 4% on the IBC
	env := newTestEnv(t)
	env.employee(t, "emp-1", "3000000", true)
	rec := env.novelty(t, "emp-1", "IGE_66", "2026-08-05", 3, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	basic := findLine(t, res, "BASICO")
	assertAmount(t, "27", basic.Quantity)
	assertAmount(t, "2700000.00", basic.Value)
	assert.True(t, basic.Salarial)

	ige := findLine(t, res, "IGE")
	assertAmount(t, "3", ige.Quantity)
	assertAmount(t, "200010.00", ige.Value)
	assert.Equal(t, rec.ID, ige.NoveltyID)
	assert.Equal(t, concept.KindEarning, ige.Kind)

	// 3,000,000 is above twice the fallback minimum wage.
	assert.False(t, hasLine(res, concept.LineTransportAllowance))

	assertAmount(t, "2900010", res.IBC)
	health := findLine(t, res, "SALUD")
	assert.Equal(t, concept.KindDeduction, health.Kind)
	assertAmount(t, "116000.40", health.Value)
	assertAmount(t, "116000.40", findLine(t, res, "PENSION").Value)

	assert.Equal(t, 27, res.Totals.WorkedDays)
	assert.Equal(t, 3, res.Totals.NoveltyDays)
	assertAmount(t, "2900010.00", res.Totals.AccruedTotal)
	assertAmount(t, "232000.80", res.Totals.DeductionsTotal)
	assertAmount(t, "2668009.20", res.Totals.NetTotal)
	assertBalanced(t, res)

	assert.Equal(t, []legal.Key{legal.MinWage}, res.FallbackKeys)
	assert.Equal(t, 1, env.fallbacks.Count(legal.MinWage))
}

func TestLiquidate_LineOrder(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "1500000", true)
	env.novelty(t, "emp-1", "VAC", "2026-08-20", 2, "")
	env.novelty(t, "emp-1", "LNR", "2026-08-03", 1, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)
	assert.Equal(t, []string{"BASICO", concept.LineTransportAllowance, "LNR", "VAC", "SALUD", "PENSION"}, lineCodes(res))
}

// =============================================================================
// TRANSPORT SUBSIDY
// =============================================================================

func TestLiquidate_TransportSubsidy(t *testing.T) {
	env := newTestEnv(t)
	env.loadDefaultParameters(t)
	env.employee(t, "emp-1", "2000000", true)

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	transport := findLine(t, res, concept.LineTransportAllowance)
	assertAmount(t, "30", transport.Quantity)
	assertAmount(t, "249095.00", transport.Value)
	assert.False(t, transport.Salarial)

	// The subsidy never enters the contribution base.
	assertAmount(t, "2000000", res.IBC)
	assertAmount(t, "80000.00", findLine(t, res, "SALUD").Value)
	assert.Empty(t, res.FallbackKeys)
	assertBalanced(t, res)
}

func TestLiquidate_TransportBlockedByNovelty(t *testing.T) {
	// GIVEN: 5 vacation days, which block the subsidy
	// THEN: the subsidy covers 25 days and the salary 25 days
	env := newTestEnv(t)
	env.loadDefaultParameters(t)
	env.employee(t, "emp-1", "2000000", true)
	env.novelty(t, "emp-1", "VAC", "2026-08-10", 5, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	transport := findLine(t, res, concept.LineTransportAllowance)
	assertAmount(t, "25", transport.Quantity)
	assertAmount(t, "207579.17", transport.Value)
	assertAmount(t, "1666666.67", findLine(t, res, "BASICO").Value)
	assertAmount(t, "333333.33", findLine(t, res, "VAC").Value)
	assertBalanced(t, res)
}

func TestLiquidate_TransportEligibility(t *testing.T) {
	tests := []struct {
		name     string
		salary   string
		eligible bool
		wantLine bool
	}{
		{"eligible under limit", "3000000", true, true},
		{"eligible at limit", "3501810", true, true},
		{"eligible over limit", "3501811", true, false},
		{"not eligible", "1750905", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.loadDefaultParameters(t)
			env.employee(t, "emp-1", tt.salary, tt.eligible)

			res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
			require.NoError(t, err)
			assert.Equal(t, tt.wantLine, hasLine(res, concept.LineTransportAllowance))
		})
	}
}

// =============================================================================
// CONCEPT VARIANTS
// =============================================================================

func TestLiquidate_OvertimeAndSurcharge(t *testing.T) {
	// GIVEN: 10 daytime overtime hours (+25%) and 8 night surcharge hours (35%)
	// THEN: hours are paid on top of a full month of salary
	env := newTestEnv(t)
	env.employee(t, "emp-1", "2400000", false)
	env.novelty(t, "emp-1", "HED", "2026-08-12", 1, "10")
	env.novelty(t, "emp-1", "HRN", "2026-08-13", 1, "8")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	overtime := findLine(t, res, "HED")
	assertAmount(t, "10", overtime.Quantity)
	assertAmount(t, "125000.00", overtime.Value)

	surcharge := findLine(t, res, "HRN")
	assertAmount(t, "8", surcharge.Quantity)
	assertAmount(t, "28000.00", surcharge.Value)

	assertAmount(t, "2400000.00", findLine(t, res, "BASICO").Value)
	assert.Equal(t, 30, res.Totals.WorkedDays)
	assert.Equal(t, 0, res.Totals.NoveltyDays)
	assertAmount(t, "2553000", res.IBC)
	assertBalanced(t, res)
}

func TestLiquidate_OvertimeWithoutHoursUsesDayCount(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "2400000", false)
	env.novelty(t, "emp-1", "HED", "2026-08-12", 2, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	overtime := findLine(t, res, "HED")
	assertAmount(t, "2", overtime.Quantity)
	assertAmount(t, "25000.00", overtime.Value)
}

func TestLiquidate_IncapacityAndLeaveVariants(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "3000000", false)
	env.novelty(t, "emp-1", "INC", "2026-08-03", 4, "")
	env.novelty(t, "emp-1", "LR", "2026-08-20", 2, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	incapacity := findLine(t, res, "INCAPACIDAD")
	assertAmount(t, "266680.00", incapacity.Value)

	leave := findLine(t, res, "LICENCIA_R")
	assertAmount(t, "200000.00", leave.Value)

	assert.Equal(t, 24, res.Totals.WorkedDays)
	assert.Equal(t, 6, res.Totals.NoveltyDays)
	assertAmount(t, "2400000.00", findLine(t, res, "BASICO").Value)
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestLiquidate_ZeroPaidDaysOmitsSalary(t *testing.T) {
	// GIVEN: unpaid leave covering the whole period
	// THEN: no salary line, a zero-valued leave line, zero contributions
	env := newTestEnv(t)
	env.employee(t, "emp-1", "2000000", false)
	env.novelty(t, "emp-1", "LNR", "2026-08-01", 30, "")

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)

	assert.False(t, hasLine(res, "BASICO"))
	assertAmount(t, "0", findLine(t, res, "LNR").Value)
	assert.Equal(t, 0, res.Totals.WorkedDays)
	assertAmount(t, "0", res.IBC)
	assertAmount(t, "0", res.Totals.NetTotal)
}

func TestLiquidate_NoveltyOutsidePeriodIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "3000000", false)
	env.novelty(t, "emp-1", "VAC", "2026-08-28", 6, "") // runs into September

	res, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)
	assert.False(t, hasLine(res, "VAC"))
	assert.Equal(t, 30, res.Totals.WorkedDays)
}

func TestLiquidate_IntegralSalaryAndCap(t *testing.T) {
	tests := []struct {
		name     string
		salary   string
		integral bool
		wantIBC  string
	}{
		{"integral uses 70%", "20000000", true, "14000000"},
		{"capped at 25 minimum wages", "40000000", false, "32500000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			emp := env.employee(t, "emp-1", tt.salary, false)
			emp.IntegralSalary = tt.integral

			res, err := env.calc.LiquidateEmployee(context.Background(), emp, august())
			require.NoError(t, err)
			assertAmount(t, tt.wantIBC, res.IBC)
			assert.True(t, findLine(t, res, "SALUD").Value.Equal(res.Contributions.HealthEmployee))
		})
	}
}

func TestLiquidate_CapUsesMinWageInForceOnce(t *testing.T) {
	// GIVEN: a salary far above the cap and the 2026 minimum wage row
	// WHEN: August 2026 and December 2025 are liquidated
	// THEN: each cap uses the wage in force at the period start, and the
	//       fallback table is consulted once for the uncovered month
	env := newTestEnv(t)
	env.loadDefaultParameters(t)
	emp := env.employee(t, "emp-1", "90000000", false)

	res, err := env.calc.LiquidateEmployee(context.Background(), emp, august())
	require.NoError(t, err)
	assertAmount(t, "43772625", res.IBC)
	assert.Zero(t, env.fallbacks.Count(legal.MinWage))

	december := generic.Period{Start: generic.MustParseDate("2025-12-01"), End: generic.MustParseDate("2025-12-30")}
	res, err = env.calc.LiquidateEmployee(context.Background(), emp, december)
	require.NoError(t, err)
	assertAmount(t, "32500000", res.IBC)
	assert.Equal(t, 1, env.fallbacks.Count(legal.MinWage))
	assert.Contains(t, res.FallbackKeys, legal.MinWage)
}

func TestLiquidate_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "2300000", true)
	env.novelty(t, "emp-1", "IGE_66", "2026-08-05", 3, "")
	env.novelty(t, "emp-1", "HEN", "2026-08-15", 1, "4")

	first, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)
	second, err := env.calc.Liquidate(context.Background(), "emp-1", august())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLiquidate_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "2000000", false)
	ctx := context.Background()

	inverted := generic.Period{Start: generic.MustParseDate("2026-08-30"), End: generic.MustParseDate("2026-08-01")}
	_, err := env.calc.Liquidate(ctx, "emp-1", inverted)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = env.calc.Liquidate(ctx, "nobody", august())
	assert.True(t, generic.IsNotFound(err))
}

func TestLiquidate_FebruaryIsThirtyDays(t *testing.T) {
	env := newTestEnv(t)
	env.employee(t, "emp-1", "3000000", false)

	feb := generic.Period{Start: generic.MustParseDate("2026-02-01"), End: generic.MustParseDate("2026-02-28")}
	res, err := env.calc.Liquidate(context.Background(), "emp-1", feb)
	require.NoError(t, err)
	assertAmount(t, "3000000.00", findLine(t, res, "BASICO").Value)
}
