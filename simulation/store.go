package simulation

import (
	"fmt"
	"sort"
	"sync"
)

// SelectionStore holds the per-session user selections driving the dashboard:
// sell-price mode, active category toggles, excluded stocks, selected dates
// with the active detail date, and per-date analysis-time overrides.
//
// State is never persisted; it is rebuilt from the index on reload. Every
// mutation replaces whole sets/maps under the lock and every read hands out
// copies, so concurrent readers never observe a partially updated set.
type SelectionStore struct {
	mu sync.RWMutex

	mode             Mode
	activeCategories map[Source]bool
	excludedStocks   map[string]struct{} // "date:category:code"
	selectedDates    map[string]struct{} // ISO YYYY-MM-DD
	activeDetailDate string
	timeOverrides    map[string]string // date -> HHMM, only deviations stored
}

// SelectionState is a read-only copy of the full store state.
type SelectionState struct {
	Mode             Mode              `json:"mode"`
	ActiveCategories map[Source]bool   `json:"active_categories"`
	ExcludedStocks   []string          `json:"excluded_stocks"`
	SelectedDates    []string          `json:"selected_dates"`
	ActiveDetailDate string            `json:"active_detail_date,omitempty"`
	TimeOverrides    map[string]string `json:"time_overrides"`
}

// NewSelectionStore creates a store with the session defaults: close-price
// mode, all categories active, nothing excluded or selected.
func NewSelectionStore() *SelectionStore {
	active := make(map[Source]bool, len(Sources))
	for _, src := range Sources {
		active[src] = true
	}
	return &SelectionStore{
		mode:             ModeClose,
		activeCategories: active,
		excludedStocks:   make(map[string]struct{}),
		selectedDates:    make(map[string]struct{}),
		timeOverrides:    make(map[string]string),
	}
}

// ExcludeKey builds the composite exclusion key for a stock.
func ExcludeKey(date string, category Source, code string) string {
	return fmt.Sprintf("%s:%s:%s", date, category, code)
}

// SetMode switches the simulated sell-price basis.
func (s *SelectionStore) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Mode returns the current sell-price basis.
func (s *SelectionStore) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetCategory enables or disables a category in the aggregate view.
func (s *SelectionStore) SetCategory(src Source, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[Source]bool, len(s.activeCategories))
	for k, v := range s.activeCategories {
		next[k] = v
	}
	next[src] = enabled
	s.activeCategories = next
}

// ToggleCategory flips a category's active flag.
func (s *SelectionStore) ToggleCategory(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[Source]bool, len(s.activeCategories))
	for k, v := range s.activeCategories {
		next[k] = v
	}
	next[src] = !next[src]
	s.activeCategories = next
}

// ToggleExcluded flips a single stock's exclusion from return aggregation.
// Exclusion is independent of the override mechanism.
func (s *SelectionStore) ToggleExcluded(date string, category Source, code string) {
	key := ExcludeKey(date, category, code)
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copySet(s.excludedStocks)
	if _, ok := next[key]; ok {
		delete(next, key)
	} else {
		next[key] = struct{}{}
	}
	s.excludedStocks = next
}

// SetExcludedBulk excludes or includes many composite keys at once.
func (s *SelectionStore) SetExcludedBulk(keys []string, excluded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copySet(s.excludedStocks)
	for _, key := range keys {
		if excluded {
			next[key] = struct{}{}
		} else {
			delete(next, key)
		}
	}
	s.excludedStocks = next
}

// IsExcluded reports whether a stock is excluded from aggregation.
func (s *SelectionStore) IsExcluded(date string, category Source, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.excludedStocks[ExcludeKey(date, category, code)]
	return ok
}

// ToggleDate adds or removes a date from the selection. Removing the active
// detail date promotes the most recent remaining date; removing the last
// selected date clears the detail date entirely.
func (s *SelectionStore) ToggleDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copySet(s.selectedDates)
	if _, ok := next[date]; ok {
		delete(next, date)
		if s.activeDetailDate == date {
			s.activeDetailDate = latestOf(next)
		}
	} else {
		next[date] = struct{}{}
		s.activeDetailDate = latestOf(next)
	}
	s.selectedDates = next
}

// SelectAllDates replaces the whole selection and points the detail view at
// the most recent of the given dates.
func (s *SelectionStore) SelectAllDates(dates []string) {
	next := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		next[d] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedDates = next
	s.activeDetailDate = latestOf(next)
}

// SelectedDates returns the selection sorted descending (most recent first).
func (s *SelectionStore) SelectedDates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedDesc(s.selectedDates)
}

// ActiveDetailDate returns the date whose detail view is open, or "".
func (s *SelectionStore) ActiveDetailDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeDetailDate
}

// SetTimeOverride records a per-date analysis-time selection. A selection
// equal to the baseline (or empty) clears the entry instead of storing it:
// only genuine deviations live in the map.
func (s *SelectionStore) SetTimeOverride(date, selected, earliest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyMap(s.timeOverrides)
	if selected == "" || selected == earliest {
		delete(next, date)
	} else {
		next[date] = selected
	}
	s.timeOverrides = next
}

// ClearTimeOverride removes the override for a date, restoring the baseline.
func (s *SelectionStore) ClearTimeOverride(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := copyMap(s.timeOverrides)
	delete(next, date)
	s.timeOverrides = next
}

// TimeOverride returns the selected time for a date, or "" when the baseline
// is in effect.
func (s *SelectionStore) TimeOverride(date string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeOverrides[date]
}

// State returns a copy of the full selection state for the API.
func (s *SelectionStore) State() SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make([]string, 0, len(s.excludedStocks))
	for k := range s.excludedStocks {
		excluded = append(excluded, k)
	}
	sort.Strings(excluded)

	active := make(map[Source]bool, len(s.activeCategories))
	for k, v := range s.activeCategories {
		active[k] = v
	}

	return SelectionState{
		Mode:             s.mode,
		ActiveCategories: active,
		ExcludedStocks:   excluded,
		SelectedDates:    sortedDesc(s.selectedDates),
		ActiveDetailDate: s.activeDetailDate,
		TimeOverrides:    copyMap(s.timeOverrides),
	}
}

func copySet(src map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

func copyMap(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// latestOf picks the lexicographically largest date. Dates are ISO
// YYYY-MM-DD strings, so largest means most recent.
func latestOf(dates map[string]struct{}) string {
	latest := ""
	for d := range dates {
		if d > latest {
			latest = d
		}
	}
	return latest
}

func sortedDesc(dates map[string]struct{}) []string {
	out := make([]string, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
