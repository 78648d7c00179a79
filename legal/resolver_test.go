package legal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type sliceStore struct {
	rows []legal.Parameter
	err  error
}

func (s *sliceStore) ParametersByKey(_ context.Context, key legal.Key) ([]legal.Parameter, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []legal.Parameter
	for _, r := range s.rows {
		if r.Key == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func param(key legal.Key, value, from, to string, seq int64) legal.Parameter {
	p := legal.Parameter{Key: key, Value: decimal.RequireFromString(value), ValidFrom: generic.MustParseDate(from), Seq: seq}
	if to != "" {
		end := generic.MustParseDate(to)
		p.ValidTo = &end
	}
	return p
}

func on(s string) generic.Date { return generic.MustParseDate(s) }

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestResolve_PicksRowInForce(t *testing.T) {
	store := &sliceStore{rows: []legal.Parameter{
		param(legal.MaxWeeklyHours, "44", "2025-07-16", "2026-07-14", 1),
		param(legal.MaxWeeklyHours, "42", "2026-07-15", "", 2),
	}}
	r := legal.NewResolver(store, nil)
	ctx := context.Background()

	v, err := r.Resolve(ctx, legal.MaxWeeklyHours, on("2026-07-14"))
	require.NoError(t, err)
	assert.Equal(t, "44", v.String())

	v, err = r.Resolve(ctx, legal.MaxWeeklyHours, on("2026-07-15"))
	require.NoError(t, err)
	assert.Equal(t, "42", v.String())

	v, err = r.Resolve(ctx, legal.MaxWeeklyHours, on("2030-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "42", v.String(), "open-ended row applies indefinitely")
}

func TestResolve_OverlapLatestValidFromWins(t *testing.T) {
	// GIVEN: two rows that both cover March 2026
	// WHEN: resolving on a date inside both
	// THEN: the row that started later wins regardless of insertion order
	store := &sliceStore{rows: []legal.Parameter{
		param(legal.MinWage, "1500000", "2026-03-01", "", 1),
		param(legal.MinWage, "1400000", "2026-01-01", "2026-12-31", 2),
	}}
	r := legal.NewResolver(store, nil)

	v, err := r.Resolve(context.Background(), legal.MinWage, on("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, "1500000", v.String())
}

func TestResolve_OverlapSameValidFromLatestInsertWins(t *testing.T) {
	store := &sliceStore{rows: []legal.Parameter{
		param(legal.MinWage, "1750905", "2026-01-01", "", 7),
		param(legal.MinWage, "1700000", "2026-01-01", "", 3),
	}}
	r := legal.NewResolver(store, nil)

	for i := 0; i < 5; i++ {
		v, err := r.Resolve(context.Background(), legal.MinWage, on("2026-06-01"))
		require.NoError(t, err)
		assert.Equal(t, "1750905", v.String())
	}
}

// =============================================================================
// FALLBACK TESTS
// =============================================================================

func TestResolve_FallbackTable(t *testing.T) {
	counter := legal.NewFallbackCounter()
	r := legal.NewResolver(&sliceStore{}, counter)
	ctx := context.Background()

	want := map[legal.Key]string{
		legal.MinWage:          "1300000",
		legal.TransportSubsidy: "140606",
		legal.MaxWeeklyHours:   "46",
		legal.TaxUnitValue:     "47065",
		legal.HolidaySurcharge: "0",
	}
	for key, expected := range want {
		res, err := r.Lookup(ctx, key, on("2020-01-01"))
		require.NoError(t, err)
		assert.True(t, res.Fallback, key)
		assert.Nil(t, res.Source)
		assert.True(t, decimal.RequireFromString(expected).Equal(res.Value), "%s: got %s", key, res.Value)
	}
	assert.Equal(t, len(want), counter.Total())
	assert.Equal(t, 1, counter.Count(legal.MinWage))
}

func TestResolve_RowOutsideRangeFallsBack(t *testing.T) {
	var seen []legal.Key
	observer := legal.FallbackObserverFunc(func(key legal.Key, _ generic.Date) { seen = append(seen, key) })
	store := &sliceStore{rows: []legal.Parameter{param(legal.MinWage, "1750905", "2026-01-01", "2026-12-31", 1)}}
	r := legal.NewResolver(store, observer)

	res, err := r.Lookup(context.Background(), legal.MinWage, on("2027-01-01"))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, []legal.Key{legal.MinWage}, seen)
}

func TestResolve_UnknownKey(t *testing.T) {
	r := legal.NewResolver(&sliceStore{}, nil)
	_, err := r.Resolve(context.Background(), legal.Key("PRIMA"), on("2026-01-01"))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	r := legal.NewResolver(&sliceStore{err: boom}, nil)
	_, err := r.Resolve(context.Background(), legal.MinWage, on("2026-01-01"))
	assert.ErrorIs(t, err, boom)
}

func TestDefaultParameters_AreValid(t *testing.T) {
	for _, p := range legal.DefaultParameters() {
		assert.NoError(t, p.Validate(), "%s from %s", p.Key, p.ValidFrom)
	}
}
