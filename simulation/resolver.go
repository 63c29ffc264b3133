package simulation

import (
	"fmt"
	"sort"
)

// IndexSet holds the loaded history index of each source. A nil index means
// the source's catalog is unavailable; it contributes no times or filenames.
type IndexSet map[Source]*HistoryIndex

// Resolver answers time and filename questions over a set of source indexes.
// Lookups are built once per index so repeated resolution does not re-scan
// the history arrays.
type Resolver struct {
	indexes IndexSet
	lookup  map[Source]map[string]string // source -> "date|time" -> filename
}

// NewResolver builds a resolver over the given indexes. Missing or nil
// indexes are tolerated.
func NewResolver(indexes IndexSet) *Resolver {
	r := &Resolver{
		indexes: indexes,
		lookup:  make(map[Source]map[string]string, len(indexes)),
	}
	for src, idx := range indexes {
		if idx == nil {
			continue
		}
		m := make(map[string]string, len(idx.History))
		for _, e := range idx.History {
			if e.Time == "" {
				continue
			}
			m[indexKey(e.Date, e.Time)] = e.Filename
		}
		r.lookup[src] = m
	}
	return r
}

func indexKey(date, t string) string {
	return date + "|" + t
}

// AvailableTimes returns every distinct collection time recorded for date
// across all sources, ascending. Times are zero-padded HHMM strings, so
// lexicographic order is chronological. The first entry is marked earliest.
// Legacy entries without a time are excluded.
func (r *Resolver) AvailableTimes(date string) []AvailableTime {
	seen := make(map[string]bool)
	for _, idx := range r.indexes {
		if idx == nil {
			continue
		}
		for _, e := range idx.History {
			if e.Date == date && e.Time != "" {
				seen[e.Time] = true
			}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	times := make([]string, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Strings(times)

	out := make([]AvailableTime, len(times))
	for i, t := range times {
		out[i] = AvailableTime{
			Time:       t,
			Label:      FormatTimeLabel(t),
			IsEarliest: i == 0,
		}
	}
	return out
}

// EarliestTime returns the baseline collection time for date, or "" when no
// source has a dated entry with a time.
func (r *Resolver) EarliestTime(date string) string {
	times := r.AvailableTimes(date)
	if len(times) == 0 {
		return ""
	}
	return times[0].Time
}

// NeedsOverride reports whether a stored selection deviates from the
// baseline. The baseline dataset already reflects the earliest collection;
// only a genuine deviation triggers extra fetches.
func NeedsOverride(selected, earliest string) bool {
	return selected != "" && earliest != "" && selected != earliest
}

// ResolveFilename returns the snapshot filename for (source, date, time), or
// "" when the source has no matching index entry. The index is authoritative;
// filenames are never string-formatted from the convention.
func (r *Resolver) ResolveFilename(src Source, date, t string) string {
	m, ok := r.lookup[src]
	if !ok {
		return ""
	}
	return m[indexKey(date, t)]
}

// FormatTimeLabel converts an HHMM collection time to its HH:MM display form.
// Inputs shorter than four characters are returned unchanged.
func FormatTimeLabel(t string) string {
	if len(t) < 4 {
		return t
	}
	return fmt.Sprintf("%s:%s", t[:2], t[2:4])
}
