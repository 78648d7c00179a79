package generic

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - Fixed-point helpers shared by every calculation
// =============================================================================

// CurrencyPlaces is the minor-unit precision of the Colombian peso.
const CurrencyPlaces int32 = 2

var (
	hundred = decimal.NewFromInt(100)

	// CommercialMonthDays is the 30-day month of the commercial calendar.
	CommercialMonthDays = decimal.NewFromInt(30)

	// MonthlyHours is the legal divisor for the ordinary hourly wage.
	MonthlyHours = decimal.NewFromInt(240)
)

// RoundCurrency rounds half-up to CurrencyPlaces. Payroll values are
// non-negative, so decimal's half-away-from-zero is half-up here.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// PercentToFraction converts 25 into 0.25.
func PercentToFraction(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}

// Prorate computes amount × units / divisor, multiplying first so exact
// results stay exact, and rounds once.
func Prorate(amount, units, divisor decimal.Decimal) decimal.Decimal {
	return RoundCurrency(amount.Mul(units).Div(divisor))
}

// Sum adds values without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
