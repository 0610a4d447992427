// Package calendar holds the in-memory set of entries the widget reads and
// writes. Entries themselves are not synchronized; the Calendar is the
// single serialization point through which HTTP handlers and the refresh
// scheduler touch them.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"calwidget/internal/model"
)

var (
	// ErrNotFound is returned when no entry with the given id is registered.
	ErrNotFound = errors.New("calendar: entry not found")
	// ErrDuplicateID is returned when Add is called with an already
	// registered id.
	ErrDuplicateID = errors.New("calendar: entry id already registered")
	// ErrNotEditable is returned when a delta is applied to an entry whose
	// editable flag is off (e.g. an imported ICS occurrence).
	ErrNotEditable = errors.New("calendar: entry is not editable")
)

// ShiftMode selects which ends of an entry a delta moves. The two modes map
// to the widget's drag and resize gestures.
type ShiftMode int

const (
	// ShiftMove shifts start and end together, preserving duration.
	ShiftMove ShiftMode = iota
	// ShiftResize shifts the end only.
	ShiftResize
)

// Calendar is a registry of entries keyed by id.
type Calendar struct {
	mu      sync.RWMutex
	entries map[string]*model.Entry
	// origin tracks which import source produced an entry ("" for entries
	// created through the API), so a source refresh can swap out exactly
	// its own entries.
	origin map[string]string
}

func New() *Calendar {
	return &Calendar{
		entries: make(map[string]*model.Entry),
		origin:  make(map[string]string),
	}
}

// Add registers a caller-created entry. The id must not be in use.
func (c *Calendar) Add(e *model.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[e.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID())
	}
	c.entries[e.ID()] = e
	c.origin[e.ID()] = ""
	return nil
}

// Remove drops the entry with the given id, reporting whether it existed.
func (c *Calendar) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists {
		return false
	}
	delete(c.entries, id)
	delete(c.origin, id)
	return true
}

// Get returns the registered entry with the given id. The returned entry is
// the live instance: it must not be read or mutated concurrently with
// registry operations. Request handlers use SnapshotOne instead, which
// serializes the read under the registry lock.
func (c *Calendar) Get(id string) (*model.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// SnapshotOne returns the outbound wire object for a single entry, read
// under the registry lock.
func (c *Calendar) SnapshotOne(id string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.ToJSON(), true
}

func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns the outbound wire objects for all entries, ordered by
// start time (then id, for a stable order among simultaneous entries).
func (c *Calendar) Snapshot() []map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sorted := make([]*model.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start().Equal(sorted[j].Start()) {
			return sorted[i].Start().Before(sorted[j].Start())
		}
		return sorted[i].ID() < sorted[j].ID()
	})

	out := make([]map[string]any, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.ToJSON())
	}
	return out
}

// ApplyChangeset routes an inbound changeset to the entry its id names and
// applies it. The changeset's own id check inside Entry.Update still runs,
// so a body whose id disagrees with the resolved entry is rejected whole.
// On success the entry's post-mutation wire object is returned, read while
// the lock is still held.
func (c *Calendar) ApplyChangeset(changeset map[string]any) (map[string]any, error) {
	id, _ := changeset["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("calendar: changeset carries no id: %w", model.ErrIDMismatch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := e.Update(changeset); err != nil {
		return nil, err
	}
	return e.ToJSON(), nil
}

// ApplyDelta shifts an entry's times by the given delta. ShiftMove shifts
// start and end together, ShiftResize only the end. All-day entries follow
// the date-only rule, so a delta's clock units never drag them off midnight.
// Nothing is mutated unless every shift succeeds. On success the entry's
// post-mutation wire object is returned, read while the lock is still held.
func (c *Calendar) ApplyDelta(id string, d model.Delta, mode ShiftMode) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !e.Editable() {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, id)
	}

	apply := d.ApplyToDateTime
	if e.AllDay() {
		apply = d.ApplyToDate
	}

	newEnd, err := apply(e.End())
	if err != nil {
		return nil, err
	}

	if mode == ShiftMove {
		newStart, err := apply(e.Start())
		if err != nil {
			return nil, err
		}
		e.SetStart(newStart)
	}
	e.SetEnd(newEnd)
	return e.ToJSON(), nil
}

// ReplaceSource swaps every entry previously imported from sourceID for the
// given replacement set. Entries created through the API (origin "") are
// never touched. An imported entry whose id collides with an API-created
// entry is skipped.
func (c *Calendar) ReplaceSource(sourceID string, entries []*model.Entry) {
	if sourceID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, src := range c.origin {
		if src == sourceID {
			delete(c.entries, id)
			delete(c.origin, id)
		}
	}
	for _, e := range entries {
		if _, exists := c.entries[e.ID()]; exists {
			continue
		}
		c.entries[e.ID()] = e
		c.origin[e.ID()] = sourceID
	}
}
