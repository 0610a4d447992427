package model

import (
	"errors"
	"fmt"
	"time"
)

// Delta is an immutable signed offset across six calendar/clock units, used
// to shift a time point (e.g. when the widget reports a drag or resize). A
// delta carries negative values when the target time lies before the origin.
//
// All fields except years are range-constrained in absolute value. Being an
// immutable comparable value, a Delta is safe to share between goroutines
// and compares structurally with ==.
type Delta struct {
	years   int
	months  int
	days    int
	hours   int
	minutes int
	seconds int
}

// ErrZeroTime is returned when a delta is applied to a missing (zero-valued)
// time input.
var ErrZeroTime = errors.New("delta: time input is missing")

// RangeError reports a delta field whose absolute value is out of range.
type RangeError struct {
	Field string
	Value int // absolute value as given
	Bound int // exclusive upper bound
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("delta: %s must be less than %d in absolute value, got %d", e.Field, e.Bound, e.Value)
}

// NewDelta validates and builds a Delta. The construction is atomic: either
// all fields lie within their bounds (|months| < 12, |days| < 31,
// |hours| < 24, |minutes| < 60, |seconds| < 60; years is unconstrained) or
// an error naming the first offending field is returned.
func NewDelta(years, months, days, hours, minutes, seconds int) (Delta, error) {
	checks := []struct {
		field string
		value int
		bound int
	}{
		{"months", months, 12},
		{"days", days, 31},
		{"hours", hours, 24},
		{"minutes", minutes, 60},
		{"seconds", seconds, 60},
	}
	for _, c := range checks {
		if abs(c.value) >= c.bound {
			return Delta{}, &RangeError{Field: c.field, Value: abs(c.value), Bound: c.bound}
		}
	}

	return Delta{
		years:   years,
		months:  months,
		days:    days,
		hours:   hours,
		minutes: minutes,
		seconds: seconds,
	}, nil
}

// DeltaFromJSON parses a delta wire object. Two historical payload shapes
// are supported and must both keep working:
//
//   - the newer shape carries a single signed "milliseconds" count that is
//     decomposed greedily into hours, minutes and seconds (largest unit
//     first, integer division truncating toward zero);
//   - the legacy shape carries separate "hours", "minutes" and "seconds"
//     fields.
//
// "years", "months" and "days" are read in either case. When "milliseconds"
// is present it takes precedence and the legacy fields are not read.
func DeltaFromJSON(obj map[string]any) (Delta, error) {
	years, err := jsonInt(obj, "years")
	if err != nil {
		return Delta{}, err
	}
	months, err := jsonInt(obj, "months")
	if err != nil {
		return Delta{}, err
	}
	days, err := jsonInt(obj, "days")
	if err != nil {
		return Delta{}, err
	}

	if _, has := obj["milliseconds"]; has {
		ms, err := jsonInt64(obj, "milliseconds")
		if err != nil {
			return Delta{}, err
		}
		hours := ms / millisPerHour
		ms -= hours * millisPerHour
		minutes := ms / millisPerMinute
		ms -= minutes * millisPerMinute
		seconds := ms / millisPerSecond

		return NewDelta(years, months, days, int(hours), int(minutes), int(seconds))
	}

	hours, err := jsonInt(obj, "hours")
	if err != nil {
		return Delta{}, err
	}
	minutes, err := jsonInt(obj, "minutes")
	if err != nil {
		return Delta{}, err
	}
	seconds, err := jsonInt(obj, "seconds")
	if err != nil {
		return Delta{}, err
	}
	return NewDelta(years, months, days, hours, minutes, seconds)
}

const (
	millisPerSecond int64 = 1000
	millisPerMinute int64 = 60 * millisPerSecond
	millisPerHour   int64 = 60 * millisPerMinute
)

func (d Delta) Years() int   { return d.years }
func (d Delta) Months() int  { return d.months }
func (d Delta) Days() int    { return d.days }
func (d Delta) Hours() int   { return d.hours }
func (d Delta) Minutes() int { return d.minutes }
func (d Delta) Seconds() int { return d.seconds }

// IsZero reports whether the delta is the identity offset.
func (d Delta) IsZero() bool { return d == Delta{} }

// ApplyToDateTime shifts a zone-less date-time by this delta. Units are
// applied largest first, in the fixed order years, months, days, hours,
// minutes, seconds; the order matters for month-end overflow, which follows
// time.AddDate normalization.
func (d Delta) ApplyToDateTime(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrZeroTime
	}
	t = t.AddDate(d.years, 0, 0)
	t = t.AddDate(0, d.months, 0)
	t = t.AddDate(0, 0, d.days)
	t = t.Add(time.Duration(d.hours)*time.Hour +
		time.Duration(d.minutes)*time.Minute +
		time.Duration(d.seconds)*time.Second)
	return t, nil
}

// ApplyToDate shifts a calendar date by the day-related units of this delta
// (years, months, days, in that order). The clock units are ignored
// entirely.
func (d Delta) ApplyToDate(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrZeroTime
	}
	t = t.AddDate(d.years, 0, 0)
	t = t.AddDate(0, d.months, 0)
	t = t.AddDate(0, 0, d.days)
	return t, nil
}

// ApplyToInstant shifts an absolute instant by this delta. The instant is
// read as a UTC wall clock, shifted with the full date-time rule, and the
// result converted back to an instant under UTC.
func (d Delta) ApplyToInstant(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrZeroTime
	}
	return d.ApplyToDateTime(t.In(time.UTC))
}

func (d Delta) String() string {
	return fmt.Sprintf("Delta{years=%d months=%d days=%d hours=%d minutes=%d seconds=%d}",
		d.years, d.months, d.days, d.hours, d.minutes, d.seconds)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// jsonInt reads an integer-valued field from a decoded JSON object. Absent
// keys read as zero. Fractional numbers are rejected.
func jsonInt(obj map[string]any, key string) (int, error) {
	n, err := jsonInt64(obj, key)
	return int(n), err
}

func jsonInt64(obj map[string]any, key string) (int64, error) {
	v, has := obj[key]
	if !has {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		i := int64(n)
		if float64(i) != n {
			return 0, fmt.Errorf("delta %q: expected integer, got %v", key, n)
		}
		return i, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("delta %q: expected number, got %T", key, v)
	}
}
