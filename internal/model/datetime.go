package model

import (
	"errors"
	"fmt"
	"time"
)

// Wire formats for zone-less local date/time values. The widget protocol
// never carries a timezone offset; values are "local" to whatever context
// consumes them.
const (
	// LayoutDateTime is the canonical outbound date-time format.
	LayoutDateTime = "2006-01-02T15:04:05"
	// LayoutDateTimeShort is accepted inbound when seconds are omitted.
	LayoutDateTimeShort = "2006-01-02T15:04"
	// LayoutDate is the date-only format used for all-day values.
	LayoutDate = "2006-01-02"
)

// ErrBadDateTime is wrapped by all date/time parse failures.
var ErrBadDateTime = errors.New("unparseable date/time value")

// FormatLocalDateTime renders t as a full zone-less date-time string.
func FormatLocalDateTime(t time.Time) string {
	return t.Format(LayoutDateTime)
}

// FormatLocalDate renders t as a date-only string, dropping time-of-day.
func FormatLocalDate(t time.Time) string {
	return t.Format(LayoutDate)
}

// ParseLocalDateTime parses a zone-less date-time string. It first tries the
// full date-time forms; if the string lacks a time component it falls back to
// a bare calendar date normalized to midnight. This lets one update path
// accept both timed and all-day payloads.
func ParseLocalDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(LayoutDateTime, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(LayoutDateTimeShort, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(LayoutDate, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, s)
}
