package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calwidget/internal/log"
	"calwidget/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone occurrences are normalized into
	// before being turned into zone-less entries. time.Local when nil.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of runaway rules. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int

	// ColorFor, when set, assigns a color token to each entry from its
	// title (config keyword rules).
	ColorFor func(title string) string
}

// ExpandResult carries the produced entries plus truncation information.
type ExpandResult struct {
	Entries []*model.Entry
	// TruncatedUIDs records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedUIDs []string
}

// ExpandEntries expands a list of ParsedEvent into calendar entries within
// the given window. It handles:
//
//   - single non-recurring events
//   - RRULE-based recurrence (DAILY/WEEKLY/MONTHLY/YEARLY, etc.)
//   - EXDATE exception removal
//   - RECURRENCE-ID overrides
//   - all-day semantics
//
// Each occurrence becomes one model.Entry with a deterministic id
// ("uid@start"), a zone-less start/end in the display timezone, and
// editable switched off; imported occurrences are owned by the feed, not
// the widget user.
func ExpandEntries(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	entries := make([]*model.Entry, 0)

	for uid, baseEvents := range baseByUID {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseEvents {
			out, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			entries = append(entries, out...)
		}

		if truncated {
			result.TruncatedUIDs = append(result.TruncatedUIDs, uid)
			appLog.Error("expand: truncated occurrences for UID",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Entries = entries
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]*model.Entry, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []*model.Entry {
	var out []*model.Entry

	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return out
	}

	baseStart := ev.Start
	baseEnd := ev.End
	if o, ok := findOverrideForStart(overrides, baseStart); ok {
		baseStart = o.Start
		baseEnd = o.End
		ev = o
	}

	if e := makeEntry(ev, baseStart, baseEnd, cfg); e != nil {
		out = append(out, e)
	}
	return out
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]*model.Entry, bool) {
	out := make([]*model.Entry, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	// Build a set so EXDATEs can be applied.
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between() works in the event's original location.
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in the event's timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}

		baseStart := occStart
		baseEnd := occEnd
		baseEv := ev
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			baseStart = o.Start
			baseEnd = o.End
			baseEv = o
		}

		if e := makeEntry(baseEv, baseStart, baseEnd, cfg); e != nil {
			out = append(out, e)
		}
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID matches the
// given baseStart with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(baseStart.Location()).Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEntry converts a (possibly overridden) ParsedEvent plus concrete
// start/end into a calendar entry. Returns nil when the occurrence cannot
// form a valid entry (missing times).
func makeEntry(ev ParsedEvent, start, end time.Time, cfg ExpandConfig) *model.Entry {
	if start.IsZero() || end.IsZero() {
		appLog.Error("expand: skipping occurrence without times", errors.New("zero start or end"), "uid", ev.UID)
		return nil
	}

	startLocal := wallClock(start.In(cfg.DisplayLocation))
	endLocal := wallClock(end.In(cfg.DisplayLocation))

	title := ev.Summary
	if title == "" {
		title = "(no title)"
	}

	var color string
	if cfg.ColorFor != nil {
		color = cfg.ColorFor(title)
	}

	// Deterministic per-occurrence id so refreshes replace rather than
	// duplicate instances.
	id := ev.UID + "@" + startLocal.Format(model.LayoutDateTime)

	e, err := model.NewEntry(id, title, startLocal, endLocal, ev.AllDay, color)
	if err != nil {
		appLog.Error("expand: occurrence rejected by entry model", err, "uid", ev.UID)
		return nil
	}
	// Feed-owned occurrences are not editable through the widget.
	e.SetEditable(false)
	return e
}

// wallClock strips the location from t, keeping its wall-clock reading. The
// entry model is zone-less; only the wall clock in the display timezone
// matters.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
