package simulation

import (
	"context"
	"log"
)

// IndexProvider supplies the current history index of each source. An
// unavailable source index is reported as a nil entry, never an error for
// the whole set.
type IndexProvider interface {
	Indexes(ctx context.Context) IndexSet
}

// BaselineProvider supplies the baseline (earliest-time) simulation dataset
// for a date.
type BaselineProvider interface {
	Baseline(ctx context.Context, date string) (*SimulationData, error)
}

// Engine composes the time resolver, override fetcher and price reconciler
// into the dataset the dashboard renders. Derivation is a pure function of
// (indexes, selection, baseline, snapshots); nothing is updated in place.
type Engine struct {
	indexes   IndexProvider
	baselines BaselineProvider
	fetcher   *OverrideFetcher
	store     *SelectionStore
}

// Result is the dataset served for a date, with override metadata.
type Result struct {
	Data           *SimulationData `json:"data"`
	Overridden     bool            `json:"overridden"`
	SelectedTime   string          `json:"selected_time,omitempty"`
	EarliestTime   string          `json:"earliest_time,omitempty"`
	AvailableTimes []AvailableTime `json:"available_times"`
}

// NewEngine creates an override engine.
func NewEngine(indexes IndexProvider, baselines BaselineProvider, fetcher *OverrideFetcher, store *SelectionStore) *Engine {
	return &Engine{
		indexes:   indexes,
		baselines: baselines,
		fetcher:   fetcher,
		store:     store,
	}
}

// Store exposes the selection store the engine consults.
func (e *Engine) Store() *SelectionStore {
	return e.store
}

// AvailableTimes returns the selectable collection times for a date.
func (e *Engine) AvailableTimes(ctx context.Context, date string) []AvailableTime {
	return NewResolver(e.indexes.Indexes(ctx)).AvailableTimes(date)
}

// DataForDate derives the dataset for a date. When the stored selection
// deviates from the earliest available time, the three per-source snapshots
// for the selected time are fetched and reconciled against the baseline;
// otherwise the baseline passes through untouched. Any override fetch
// failure falls back to the baseline explicitly rather than serving a
// half-merged result.
func (e *Engine) DataForDate(ctx context.Context, date string) (*Result, error) {
	resolver := NewResolver(e.indexes.Indexes(ctx))
	times := resolver.AvailableTimes(date)

	earliest := ""
	if len(times) > 0 {
		earliest = times[0].Time
	}
	selected := e.store.TimeOverride(date)

	baseline, err := e.baselines.Baseline(ctx, date)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Data:           baseline,
		SelectedTime:   selected,
		EarliestTime:   earliest,
		AvailableTimes: times,
	}

	if !NeedsOverride(selected, earliest) || baseline == nil {
		return res, nil
	}

	snaps, err := e.fetcher.FetchAll(ctx, resolver, date, selected)
	if err != nil {
		// Fail closed: the baseline stays on screen.
		log.Printf("⚠️  Override fetch failed for %s@%s, serving baseline: %v", date, selected, err)
		return res, nil
	}

	res.Data = BuildOverriddenData(baseline, snaps.Vision, snaps.KIS, snaps.Combined)
	res.Overridden = true
	return res, nil
}
