package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/generic"
)

func d(s string) generic.Date { return generic.MustParseDate(s) }

func TestDaysBetween_BoundaryCases(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"first fortnight", "2026-05-01", "2026-05-15", 15},
		{"second fortnight of a 31-day month", "2026-05-16", "2026-05-31", 15},
		{"full 31-day month", "2026-05-01", "2026-05-31", 30},
		{"full 30-day month", "2026-06-01", "2026-06-30", 30},
		{"leap February full month", "2024-02-01", "2024-02-29", 30},
		{"non-leap February full month", "2023-02-01", "2023-02-28", 30},
		{"partial February ending on last day", "2026-02-15", "2026-02-28", 14},
		{"single last day of February", "2026-02-28", "2026-02-28", 1},
		{"February not ending on last day", "2024-02-01", "2024-02-28", 28},
		{"second fortnight of February", "2026-02-16", "2026-02-28", 13},
		{"start on 31st", "2026-01-31", "2026-02-15", 16},
		{"same day", "2026-08-10", "2026-08-10", 1},
		{"across year boundary", "2025-12-16", "2026-01-15", 30},
		{"full year", "2026-01-01", "2026-12-31", 360},
		{"inverted", "2026-05-15", "2026-05-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.DaysBetween(d(tt.start), d(tt.end)))
		})
	}
}

func TestDaysBetween_ShiftInvariantWithinMonth(t *testing.T) {
	// GIVEN: spans of a fixed length inside one 30-day month
	// WHEN: both ends shift by the same number of days
	// THEN: the count does not change
	base := calendar.DaysBetween(d("2026-06-01"), d("2026-06-10"))
	for shift := 1; shift <= 20; shift++ {
		start := d("2026-06-01").AddDays(shift)
		end := d("2026-06-10").AddDays(shift)
		assert.Equal(t, base, calendar.DaysBetween(start, end), "shift %d", shift)
	}
}

func TestEndDate(t *testing.T) {
	assert.Equal(t, d("2026-08-07"), calendar.EndDate(d("2026-08-05"), 3))
	assert.Equal(t, d("2026-08-05"), calendar.EndDate(d("2026-08-05"), 1))
	assert.Equal(t, d("2026-03-02"), calendar.EndDate(d("2026-02-27"), 4))
}

func TestFortnights(t *testing.T) {
	halves := calendar.Fortnights(2024, time.February)
	assert.Equal(t, 15, calendar.PeriodDays(halves[0]))
	assert.Equal(t, d("2024-02-29"), halves[1].End)
	assert.Equal(t, 14, calendar.PeriodDays(halves[1]))
}
