package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDelta_RangeValidation(t *testing.T) {
	tests := []struct {
		name                                      string
		years, months, days, hours, minutes, secs int
		wantField                                 string
	}{
		{name: "all zero", years: 0},
		{name: "years unconstrained", years: 9999},
		{name: "negative years unconstrained", years: -9999},
		{name: "months at bound", months: 12, wantField: "months"},
		{name: "months at negative bound", months: -12, wantField: "months"},
		{name: "months just inside", months: 11},
		{name: "negative months just inside", months: -11},
		{name: "days at bound", days: 31, wantField: "days"},
		{name: "days just inside", days: 30},
		{name: "hours at bound", hours: 24, wantField: "hours"},
		{name: "hours just inside", hours: 23},
		{name: "minutes at bound", minutes: 60, wantField: "minutes"},
		{name: "minutes just inside", minutes: 59},
		{name: "seconds at bound", secs: 60, wantField: "seconds"},
		{name: "seconds just inside", secs: 59},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDelta(tt.years, tt.months, tt.days, tt.hours, tt.minutes, tt.secs)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var re *RangeError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.wantField, re.Field)
			assert.Contains(t, re.Error(), tt.wantField)
		})
	}
}

func TestDeltaFromJSON_MillisecondsDecomposition(t *testing.T) {
	d, err := DeltaFromJSON(map[string]any{
		"years":        float64(0),
		"months":       float64(0),
		"days":         float64(0),
		"milliseconds": float64(3_725_000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Hours())
	assert.Equal(t, 2, d.Minutes())
	assert.Equal(t, 5, d.Seconds())
}

func TestDeltaFromJSON_NegativeMilliseconds(t *testing.T) {
	d, err := DeltaFromJSON(map[string]any{
		"years":        float64(0),
		"months":       float64(0),
		"days":         float64(-1),
		"milliseconds": float64(-3_725_000),
	})
	require.NoError(t, err)
	assert.Equal(t, -1, d.Days())
	assert.Equal(t, -1, d.Hours())
	assert.Equal(t, -2, d.Minutes())
	assert.Equal(t, -5, d.Seconds())
}

func TestDeltaFromJSON_LegacyShape(t *testing.T) {
	d, err := DeltaFromJSON(map[string]any{
		"years":   float64(1),
		"months":  float64(0),
		"days":    float64(0),
		"hours":   float64(0),
		"minutes": float64(0),
		"seconds": float64(0),
	})
	require.NoError(t, err)
	assert.Equal(t, Delta{years: 1}, d)
}

func TestDeltaFromJSON_MillisecondsTakesPrecedence(t *testing.T) {
	d, err := DeltaFromJSON(map[string]any{
		"years":        float64(0),
		"months":       float64(0),
		"days":         float64(0),
		"milliseconds": float64(1000),
		// Legacy fields must not be read when milliseconds is present.
		"hours": float64(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Hours())
	assert.Equal(t, 1, d.Seconds())
}

func TestDeltaFromJSON_RangeViolationPropagates(t *testing.T) {
	_, err := DeltaFromJSON(map[string]any{
		"years": float64(0), "months": float64(14), "days": float64(0),
		"hours": float64(0), "minutes": float64(0), "seconds": float64(0),
	})
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "months", re.Field)
}

func TestDeltaFromJSON_RejectsNonNumbers(t *testing.T) {
	_, err := DeltaFromJSON(map[string]any{"years": "two"})
	assert.Error(t, err)

	_, err = DeltaFromJSON(map[string]any{"years": float64(0), "months": float64(1.5)})
	assert.Error(t, err)
}

func TestDelta_StructuralEquality(t *testing.T) {
	direct, err := NewDelta(0, 0, 0, 1, 2, 5)
	require.NoError(t, err)

	parsed, err := DeltaFromJSON(map[string]any{
		"years": float64(0), "months": float64(0), "days": float64(0),
		"milliseconds": float64(3_725_000),
	})
	require.NoError(t, err)

	assert.Equal(t, direct, parsed)
	assert.True(t, direct == parsed)
}

func TestDelta_ZeroIsIdentity(t *testing.T) {
	var zero Delta
	require.True(t, zero.IsZero())

	dateTime := time.Date(2026, 8, 26, 14, 30, 45, 0, time.UTC)
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	instant := time.Date(2026, 8, 26, 14, 30, 45, 0, time.FixedZone("KST", 9*3600))

	got, err := zero.ApplyToDateTime(dateTime)
	require.NoError(t, err)
	assert.True(t, got.Equal(dateTime))

	got, err = zero.ApplyToDate(date)
	require.NoError(t, err)
	assert.True(t, got.Equal(date))

	got, err = zero.ApplyToInstant(instant)
	require.NoError(t, err)
	assert.True(t, got.Equal(instant))
}

func TestDelta_ApplyToDateTime(t *testing.T) {
	d, err := NewDelta(1, 2, 3, 4, 5, 6)
	require.NoError(t, err)

	got, err := d.ApplyToDateTime(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 3, 13, 12, 5, 6, 0, time.UTC), got)
}

func TestDelta_ApplyToDateIgnoresClockUnits(t *testing.T) {
	d, err := NewDelta(0, 1, 1, 23, 59, 59)
	require.NoError(t, err)

	got, err := d.ApplyToDate(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), got)
}

func TestDelta_MonthEndOverflowConsistency(t *testing.T) {
	// Plus one month from a month-end lands wherever AddDate normalization
	// says; the date-time and date-only forms must agree on that day.
	d, err := NewDelta(0, 1, 0, 0, 0, 0)
	require.NoError(t, err)

	fromDateTime, err := d.ApplyToDateTime(time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	fromDate, err := d.ApplyToDate(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	y1, m1, d1 := fromDateTime.Date()
	y2, m2, d2 := fromDate.Date()
	assert.Equal(t, [3]int{y1, int(m1), d1}, [3]int{y2, int(m2), d2})
}

func TestDelta_ApplyToInstantUsesUTCWallClock(t *testing.T) {
	d, err := NewDelta(0, 0, 1, 0, 0, 0)
	require.NoError(t, err)

	// 2026-03-01 00:00 KST == 2026-02-28 15:00 UTC; one day later is
	// 2026-03-01 15:00 UTC regardless of the input's zone.
	kst := time.FixedZone("KST", 9*3600)
	in := time.Date(2026, 3, 1, 0, 0, 0, 0, kst)

	got, err := d.ApplyToInstant(in)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)))
}

func TestDelta_ApplyRejectsZeroTime(t *testing.T) {
	d, err := NewDelta(0, 0, 1, 0, 0, 0)
	require.NoError(t, err)

	_, err = d.ApplyToDateTime(time.Time{})
	assert.ErrorIs(t, err, ErrZeroTime)
	_, err = d.ApplyToDate(time.Time{})
	assert.ErrorIs(t, err, ErrZeroTime)
	_, err = d.ApplyToInstant(time.Time{})
	assert.ErrorIs(t, err, ErrZeroTime)
}
