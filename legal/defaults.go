package legal

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// FALLBACK TABLE - Answers lookups when no row is in force
// =============================================================================

var fallbackTable = map[Key]decimal.Decimal{
	MinWage:          decimal.RequireFromString("1300000.00"),
	TransportSubsidy: decimal.RequireFromString("140606.00"),
	MaxWeeklyHours:   decimal.RequireFromString("46.00"),
	TaxUnitValue:     decimal.RequireFromString("47065.00"),
	HolidaySurcharge: decimal.Zero,
}

func fallbackValue(key Key) (decimal.Decimal, bool) {
	v, ok := fallbackTable[key]
	return v, ok
}

// =============================================================================
// SHIPPED REFERENCE DATA - Colombian regime 2025/2026
// =============================================================================

// DefaultParameters returns the legal rows loaded by a fresh installation.
func DefaultParameters() []Parameter {
	return []Parameter{
		row(MinWage, "1750905", "2026-01-01", "2026-12-31"),
		row(TransportSubsidy, "249095", "2026-01-01", "2026-12-31"),
		row(TaxUnitValue, "53905", "2026-01-01", "2026-12-31"),
		row(MaxWeeklyHours, "44", "2025-07-16", "2026-07-14"),
		row(MaxWeeklyHours, "42", "2026-07-15", ""),
		row(HolidaySurcharge, "0.80", "2025-01-01", "2026-06-30"),
		row(HolidaySurcharge, "0.90", "2026-07-01", ""),
	}
}

func row(key Key, value, from, to string) Parameter {
	p := Parameter{
		Key:       key,
		Value:     decimal.RequireFromString(value),
		ValidFrom: generic.MustParseDate(from),
	}
	if to != "" {
		end := generic.MustParseDate(to)
		p.ValidTo = &end
	}
	return p
}
