package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calwidget/internal/calendar"
	appLog "calwidget/internal/log"
)

// Importer periodically pulls the configured ICS sources and reconciles
// their occurrences into a calendar registry.
type Importer struct {
	fetcher *Fetcher
	sources []Source

	displayLoc   *time.Location
	horizonDays  int
	backfillDays int
	maxPerEvent  int
	colorFor     func(title string) string
}

// ImporterConfig bundles the knobs an Importer needs.
type ImporterConfig struct {
	CacheDir     string
	Sources      []Source
	DisplayLoc   *time.Location
	HorizonDays  int
	BackfillDays int
	// MaxPerEvent caps recurrence expansion; zero means the default cap.
	MaxPerEvent int
	// ColorFor assigns a color token from an entry title; may be nil.
	ColorFor func(title string) string
}

func NewImporter(cfg ImporterConfig) *Importer {
	loc := cfg.DisplayLoc
	if loc == nil {
		loc = time.Local
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	backfill := cfg.BackfillDays
	if backfill < 0 {
		backfill = 0
	}
	return &Importer{
		fetcher:      NewFetcher(cfg.CacheDir),
		sources:      cfg.Sources,
		displayLoc:   loc,
		horizonDays:  horizon,
		backfillDays: backfill,
		maxPerEvent:  cfg.MaxPerEvent,
		colorFor:     cfg.ColorFor,
	}
}

// Refresh fetches every source, expands its events over the import window
// and swaps the result into the registry. Sources fail independently: a
// broken feed keeps its previous entries and is reported in the joined
// error, while healthy feeds still refresh.
func (im *Importer) Refresh(ctx context.Context, cal *calendar.Calendar) error {
	if len(im.sources) == 0 {
		return nil
	}

	now := time.Now().In(im.displayLoc)
	rangeStart := now.AddDate(0, 0, -im.backfillDays)
	rangeEnd := now.AddDate(0, 0, im.horizonDays)

	results, fetchErrs := im.fetcher.FetchAll(ctx, im.sources)
	errs := fetchErrs

	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", res.Source.ID, err))
			continue
		}

		expanded, err := ExpandEntries(events, ExpandConfig{
			DisplayLocation:        im.displayLoc,
			RangeStart:             rangeStart,
			RangeEnd:               rangeEnd,
			MaxOccurrencesPerEvent: im.maxPerEvent,
			ColorFor:               im.colorFor,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expand %s: %w", res.Source.ID, err))
			continue
		}

		cal.ReplaceSource(res.Source.ID, expanded.Entries)
		appLog.Info("ics source refreshed",
			"id", res.Source.ID,
			"entries", len(expanded.Entries),
			"from_cache", res.FromCache,
			"truncated_uids", len(expanded.TruncatedUIDs),
		)
	}

	return errors.Join(errs...)
}
