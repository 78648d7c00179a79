/*
Package calendar implements the 30/360 commercial day count used by
Colombian payroll.

PURPOSE:
  Every month counts as 30 days. A fortnight is 15 days whether the month
  has 28, 30 or 31 real days, and a full February pays 30 days.

RULES (applied in order):
  1. start after end                       -> 0
  2. day 31 on either bound                -> treated as day 30
  3. range ends on the last day of February:
       starts Feb 1 of that same February  -> exactly 30
       otherwise                           -> raw end day, no snap
  4. (y2*360 + m2*30 + d2) - (y1*360 + m1*30 + d1) + 1

EXAMPLES:
  2026-05-01 .. 2026-05-15 -> 15
  2026-05-16 .. 2026-05-31 -> 15
  2024-02-01 .. 2024-02-29 -> 30
  2026-02-15 .. 2026-02-28 -> 14

SEE ALSO:
  - liquidation/calculator.go: Worked-day and subsidy-day counts
  - novelty/scheduler.go: EndDate derivation
*/
package calendar

import (
	"time"

	"github.com/warp/payroll-engine/generic"
)

// DaysBetween returns the inclusive commercial day count from start to end.
func DaysBetween(start, end generic.Date) int {
	if start.After(end) {
		return 0
	}

	y1, m1, d1 := start.Year(), int(start.Month()), start.Day()
	y2, m2, d2 := end.Year(), int(end.Month()), end.Day()

	if d2 == 31 {
		d2 = 30
	}
	if d1 == 31 {
		d1 = 30
	}

	if end.Month() == time.February && end.IsLastDayOfMonth() {
		if y1 == y2 && m1 == m2 && d1 == 1 {
			return 30
		}
		// Partial February keeps the real end day.
	}

	return (y2*360 + m2*30 + d2) - (y1*360 + m1*30 + d1) + 1
}

// PeriodDays is DaysBetween over a period.
func PeriodDays(p generic.Period) int {
	return DaysBetween(p.Start, p.End)
}

// EndDate returns the last calendar day of a span of dayCount days that
// begins on start: start + dayCount - 1.
func EndDate(start generic.Date, dayCount int) generic.Date {
	if dayCount < 1 {
		return start
	}
	return start.AddDays(dayCount - 1)
}

// LastDayOfMonth returns the real last day of the month containing d.
func LastDayOfMonth(d generic.Date) generic.Date {
	return generic.EndOfMonth(d.Year(), d.Month())
}

// Fortnights splits a month into the two standard semi-monthly pay periods.
func Fortnights(year int, month time.Month) [2]generic.Period {
	first := generic.Period{Start: generic.StartOfMonth(year, month), End: generic.NewDate(year, month, 15)}
	second := generic.Period{Start: generic.NewDate(year, month, 16), End: generic.EndOfMonth(year, month)}
	return [2]generic.Period{first, second}
}
