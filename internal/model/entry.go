package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single event / item shown in the calendar widget. It is
// a mutable record with a stable identity: the id never changes after
// construction and is the only field that participates in equality, so an
// Entry works as a handle to a logical event whose other fields may be in
// flux.
//
// An Entry is not internally synchronized. Concurrent Update calls, or a
// ToJSON racing a setter, on the same instance must be serialized by the
// caller (see internal/calendar for the registry that does this).
type Entry struct {
	id       string
	title    string
	start    time.Time
	end      time.Time
	allDay   bool
	editable bool
	color    string
}

var (
	// ErrRequired is wrapped when a required construction value is missing.
	ErrRequired = errors.New("required value is missing")
	// ErrIDMismatch is returned when a changeset's id does not name the
	// entry it was applied to. The update is rejected as a whole.
	ErrIDMismatch = errors.New("changeset id does not match entry id")
)

// NewEntry constructs an entry. title, start and end are required; the whole
// construction fails if any of them is missing. When id is empty a fresh
// random UUID v4 is generated. editable always starts out true.
func NewEntry(id, title string, start, end time.Time, allDay bool, color string) (*Entry, error) {
	if title == "" {
		return nil, fmt.Errorf("entry: title: %w", ErrRequired)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("entry: start: %w", ErrRequired)
	}
	if end.IsZero() {
		return nil, fmt.Errorf("entry: end: %w", ErrRequired)
	}

	if id == "" {
		id = uuid.New().String()
	}

	return &Entry{
		id:       id,
		title:    title,
		start:    start,
		end:      end,
		allDay:   allDay,
		editable: true,
		color:    color,
	}, nil
}

func (e *Entry) ID() string { return e.id }

func (e *Entry) Title() string         { return e.title }
func (e *Entry) SetTitle(title string) { e.title = title }

func (e *Entry) Start() time.Time         { return e.start }
func (e *Entry) SetStart(start time.Time) { e.start = start }

func (e *Entry) End() time.Time       { return e.end }
func (e *Entry) SetEnd(end time.Time) { e.end = end }

func (e *Entry) AllDay() bool          { return e.allDay }
func (e *Entry) SetAllDay(allDay bool) { e.allDay = allDay }

func (e *Entry) Editable() bool            { return e.editable }
func (e *Entry) SetEditable(editable bool) { e.editable = editable }

// Color returns the CSS color token, or "" when unset.
func (e *Entry) Color() string         { return e.color }
func (e *Entry) SetColor(color string) { e.color = color }

// Equal reports whether both entries name the same logical event. Only the
// id is compared; two entries with the same id are the same entry regardless
// of their other field values. Use ID() as the key when storing entries in
// a map or set.
func (e *Entry) Equal(other *Entry) bool {
	return other != nil && e.id == other.id
}

// ToJSON returns the outbound wire object for this entry. When the entry is
// all-day, start and end are truncated to date-only strings; otherwise they
// carry the full zone-less date-time. An unset color serializes as JSON
// null. The call is a pure read of current state.
func (e *Entry) ToJSON() map[string]any {
	obj := map[string]any{
		"id":       e.id,
		"title":    e.title,
		"allDay":   e.allDay,
		"editable": e.editable,
	}

	if e.allDay {
		obj["start"] = FormatLocalDate(e.start)
		obj["end"] = FormatLocalDate(e.end)
	} else {
		obj["start"] = FormatLocalDateTime(e.start)
		obj["end"] = FormatLocalDateTime(e.end)
	}

	if e.color == "" {
		obj["color"] = nil
	} else {
		obj["color"] = e.color
	}

	return obj
}

// Update applies a partial changeset to this entry. The changeset must carry
// the entry's own id; a mismatch rejects the whole update. Keys that are
// absent leave the corresponding field unchanged, unknown keys are ignored.
// All present values are parsed and validated before anything is assigned,
// so a bad value never leaves the entry half-updated.
//
// start/end accept either a full zone-less date-time or a bare calendar date
// (normalized to midnight).
func (e *Entry) Update(changeset map[string]any) error {
	id, ok := changeset["id"].(string)
	if !ok || id != e.id {
		return fmt.Errorf("entry %q: %w", e.id, ErrIDMismatch)
	}

	var (
		title, color     *string
		editable, allDay *bool
		start, end       *time.Time
	)

	if v, has := changeset["title"]; has {
		s, err := changesetString("title", v)
		if err != nil {
			return err
		}
		title = &s
	}
	if v, has := changeset["editable"]; has {
		b, err := changesetBool("editable", v)
		if err != nil {
			return err
		}
		editable = &b
	}
	if v, has := changeset["allDay"]; has {
		b, err := changesetBool("allDay", v)
		if err != nil {
			return err
		}
		allDay = &b
	}
	if v, has := changeset["start"]; has {
		t, err := changesetDateTime("start", v)
		if err != nil {
			return err
		}
		start = &t
	}
	if v, has := changeset["end"]; has {
		t, err := changesetDateTime("end", v)
		if err != nil {
			return err
		}
		end = &t
	}
	if v, has := changeset["color"]; has {
		// JSON null clears the color, mirroring the null emitted by ToJSON.
		if v == nil {
			empty := ""
			color = &empty
		} else {
			s, err := changesetString("color", v)
			if err != nil {
				return err
			}
			color = &s
		}
	}

	if title != nil {
		e.SetTitle(*title)
	}
	if editable != nil {
		e.SetEditable(*editable)
	}
	if allDay != nil {
		e.SetAllDay(*allDay)
	}
	if start != nil {
		e.SetStart(*start)
	}
	if end != nil {
		e.SetEnd(*end)
	}
	if color != nil {
		e.SetColor(*color)
	}

	return nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("Entry{id=%s title=%q start=%s end=%s allDay=%t editable=%t}",
		e.id, e.title, FormatLocalDateTime(e.start), FormatLocalDateTime(e.end), e.allDay, e.editable)
}

func changesetString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("changeset %q: expected string, got %T", key, v)
	}
	return s, nil
}

func changesetBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("changeset %q: expected bool, got %T", key, v)
	}
	return b, nil
}

func changesetDateTime(key string, v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("changeset %q: expected string, got %T", key, v)
	}
	t, err := ParseLocalDateTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("changeset %q: %w", key, err)
	}
	return t, nil
}
