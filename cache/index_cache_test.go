package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"krx-signal-board/simulation"
)

type fakeIndexFetcher struct {
	indexes map[simulation.Source]*simulation.HistoryIndex
	fail    map[simulation.Source]bool
	calls   map[simulation.Source]int
}

func newFakeIndexFetcher() *fakeIndexFetcher {
	return &fakeIndexFetcher{
		indexes: make(map[simulation.Source]*simulation.HistoryIndex),
		fail:    make(map[simulation.Source]bool),
		calls:   make(map[simulation.Source]int),
	}
}

func (f *fakeIndexFetcher) FetchIndex(_ context.Context, src simulation.Source) (*simulation.HistoryIndex, error) {
	f.calls[src]++
	if f.fail[src] {
		return nil, errors.New("store unavailable")
	}
	idx, ok := f.indexes[src]
	if !ok {
		return nil, errors.New("no such index")
	}
	return idx, nil
}

func indexOf(entries ...simulation.HistoryIndexEntry) *simulation.HistoryIndex {
	return &simulation.HistoryIndex{History: entries}
}

func entry(date, t string, src simulation.Source) simulation.HistoryIndexEntry {
	return simulation.HistoryIndexEntry{
		Date:     date,
		Time:     t,
		Filename: string(src) + "_" + date + "_" + t + ".json",
	}
}

func TestIndexServedFromCacheWithinTTL(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))

	c := NewIndexCache(fetcher, nil, time.Minute)

	first := c.Index(context.Background(), simulation.SourceVision)
	second := c.Index(context.Background(), simulation.SourceVision)

	if first == nil || second == nil {
		t.Fatal("expected index to load")
	}
	if fetcher.calls[simulation.SourceVision] != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.calls[simulation.SourceVision])
	}
	if first != second {
		t.Error("expected the cached index instance to be reused")
	}
}

func TestIndexExpiredEntryRefetches(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))

	c := NewIndexCache(fetcher, nil, time.Nanosecond)

	c.Index(context.Background(), simulation.SourceVision)
	time.Sleep(time.Millisecond)
	c.Index(context.Background(), simulation.SourceVision)

	if fetcher.calls[simulation.SourceVision] != 2 {
		t.Errorf("expected 2 fetches, got %d", fetcher.calls[simulation.SourceVision])
	}
}

func TestIndexServesStaleOnFetchFailure(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))

	c := NewIndexCache(fetcher, nil, time.Nanosecond)

	fresh := c.Index(context.Background(), simulation.SourceVision)
	if fresh == nil {
		t.Fatal("expected initial load to succeed")
	}

	fetcher.fail[simulation.SourceVision] = true
	time.Sleep(time.Millisecond)

	stale := c.Index(context.Background(), simulation.SourceVision)
	if stale == nil {
		t.Fatal("expected stale index to keep serving")
	}
	if len(stale.History) != 1 {
		t.Errorf("unexpected stale index: %+v", stale)
	}
}

func TestIndexUnavailableSourceIsNil(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.fail[simulation.SourceKIS] = true

	c := NewIndexCache(fetcher, nil, time.Minute)

	if idx := c.Index(context.Background(), simulation.SourceKIS); idx != nil {
		t.Errorf("expected nil for unavailable source, got %+v", idx)
	}
}

func TestIndexesCoversEverySource(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))
	fetcher.fail[simulation.SourceKIS] = true
	fetcher.indexes[simulation.SourceCombined] = indexOf(entry("2026-02-04", "0700", simulation.SourceCombined))

	set := NewIndexCache(fetcher, nil, time.Minute).Indexes(context.Background())

	if len(set) != len(simulation.Sources) {
		t.Fatalf("expected an entry per source, got %d", len(set))
	}
	if set[simulation.SourceVision] == nil {
		t.Error("vision index missing")
	}
	if set[simulation.SourceKIS] != nil {
		t.Error("failed source should map to nil")
	}
	if set[simulation.SourceCombined] == nil {
		t.Error("combined index missing")
	}
}

func TestRefreshReportsChangedSources(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))
	fetcher.indexes[simulation.SourceKIS] = indexOf(entry("2026-02-04", "0700", simulation.SourceKIS))
	fetcher.indexes[simulation.SourceCombined] = indexOf(entry("2026-02-04", "0700", simulation.SourceCombined))

	c := NewIndexCache(fetcher, nil, time.Minute)

	// First refresh populates everything, so every source counts as changed.
	changed := c.Refresh(context.Background())
	if len(changed) != 3 {
		t.Fatalf("expected 3 changed sources on first refresh, got %v", changed)
	}

	// Unchanged indexes report no change.
	if changed := c.Refresh(context.Background()); len(changed) != 0 {
		t.Errorf("expected no changes, got %v", changed)
	}

	// A new collection time on one source is detected.
	fetcher.indexes[simulation.SourceVision] = indexOf(
		entry("2026-02-04", "0700", simulation.SourceVision),
		entry("2026-02-04", "1000", simulation.SourceVision),
	)
	changed = c.Refresh(context.Background())
	if len(changed) != 1 || changed[0] != simulation.SourceVision {
		t.Errorf("expected only vision to change, got %v", changed)
	}
}

func TestRefreshSkipsFailingSource(t *testing.T) {
	fetcher := newFakeIndexFetcher()
	fetcher.indexes[simulation.SourceVision] = indexOf(entry("2026-02-04", "0700", simulation.SourceVision))
	fetcher.indexes[simulation.SourceCombined] = indexOf(entry("2026-02-04", "0700", simulation.SourceCombined))
	fetcher.fail[simulation.SourceKIS] = true

	c := NewIndexCache(fetcher, nil, time.Minute)

	changed := c.Refresh(context.Background())
	for _, src := range changed {
		if src == simulation.SourceKIS {
			t.Error("failing source must not be reported as changed")
		}
	}
	if len(changed) != 2 {
		t.Errorf("expected vision and combined, got %v", changed)
	}
}
