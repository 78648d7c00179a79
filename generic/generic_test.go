package generic_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// DATE TESTS
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := generic.ParseDate("2026-08-15")
	require.NoError(t, err)
	assert.Equal(t, generic.NewDate(2026, time.August, 15), d)
	assert.Equal(t, "2026-08-15", d.String())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := generic.ParseDate("15/08/2026")
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		On  generic.Date  `json:"on"`
		Opt *generic.Date `json:"opt"`
	}

	in := wrapper{On: generic.NewDate(2024, time.February, 29)}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2024-02-29","opt":null}`, string(b))

	var out wrapper
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.On.Equal(in.On))
	assert.Nil(t, out.Opt)
}

func TestDate_IsLastDayOfMonth(t *testing.T) {
	assert.True(t, generic.NewDate(2024, time.February, 29).IsLastDayOfMonth())
	assert.False(t, generic.NewDate(2024, time.February, 28).IsLastDayOfMonth())
	assert.True(t, generic.NewDate(2023, time.February, 28).IsLastDayOfMonth())
	assert.True(t, generic.NewDate(2026, time.May, 31).IsLastDayOfMonth())
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestNewPeriod_RejectsInverted(t *testing.T) {
	_, err := generic.NewPeriod(generic.MustParseDate("2026-08-31"), generic.MustParseDate("2026-08-01"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_Overlaps(t *testing.T) {
	existing := generic.Period{Start: generic.MustParseDate("2026-08-01"), End: generic.MustParseDate("2026-08-15")}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"inside", "2026-08-05", "2026-08-07", true},
		{"touches end", "2026-08-15", "2026-08-20", true},
		{"touches start", "2026-07-25", "2026-08-01", true},
		{"after", "2026-08-16", "2026-08-18", false},
		{"before", "2026-07-01", "2026-07-31", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := generic.Period{Start: generic.MustParseDate(tt.start), End: generic.MustParseDate(tt.end)}
			assert.Equal(t, tt.want, existing.Overlaps(other))
			assert.Equal(t, tt.want, other.Overlaps(existing))
		})
	}
}

// =============================================================================
// MONEY TESTS
// =============================================================================

func TestRoundCurrency_HalfUp(t *testing.T) {
	assert.Equal(t, "10.01", generic.RoundCurrency(decimal.RequireFromString("10.005")).StringFixed(2))
	assert.Equal(t, "10.00", generic.RoundCurrency(decimal.RequireFromString("10.004")).StringFixed(2))
}

func TestProrate_MultipliesBeforeDividing(t *testing.T) {
	got := generic.Prorate(decimal.NewFromInt(1000000), decimal.NewFromInt(7), generic.CommercialMonthDays)
	assert.Equal(t, "233333.33", got.StringFixed(2))
}

func TestErrors_Unwrap(t *testing.T) {
	err := &generic.NotFoundError{Kind: "employee", ID: "emp-1"}
	assert.True(t, generic.IsNotFound(err))
	assert.False(t, generic.IsClientError(err))

	var verr *generic.ValidationError
	assert.True(t, errors.As(error(&generic.ValidationError{Field: "day_count", Message: "must be > 0"}), &verr))
	assert.Equal(t, "day_count", verr.Field)
}
