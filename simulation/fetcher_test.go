package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeClient counts fetches and can fail per filename.
type fakeClient struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

func (c *fakeClient) FetchSourceSnapshot(ctx context.Context, src Source, filename string) (*SourceSnapshot, error) {
	c.mu.Lock()
	c.calls[filename]++
	err := c.failures[filename]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &SourceSnapshot{Date: "2026-02-04", Results: []StockResult{}}, nil
}

func (c *fakeClient) FetchCombinedSnapshot(ctx context.Context, filename string) (*CombinedSnapshot, error) {
	c.mu.Lock()
	c.calls[filename]++
	err := c.failures[filename]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &CombinedSnapshot{Date: "2026-02-04", Stocks: []CombinedStock{}}, nil
}

func (c *fakeClient) callCount(filename string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[filename]
}

func TestFetchAllResolvesAllThreeSources(t *testing.T) {
	client := newFakeClient()
	f := NewOverrideFetcher(client)
	r := NewResolver(testIndexes())

	snaps, err := f.FetchAll(context.Background(), r, "2026-02-04", "0700")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snaps.Vision == nil || snaps.KIS == nil || snaps.Combined == nil {
		t.Errorf("all three sources resolve at 0700, got %+v", snaps)
	}
}

func TestFetchAllUnresolvedSourceContributesNothing(t *testing.T) {
	client := newFakeClient()
	f := NewOverrideFetcher(client)
	r := NewResolver(testIndexes())

	// KIS has no 1330 entry.
	snaps, err := f.FetchAll(context.Background(), r, "2026-02-04", "1330")
	if err != nil {
		t.Fatalf("missing source entry must not be an error: %v", err)
	}
	if snaps.KIS != nil {
		t.Error("kis should contribute nothing at 1330")
	}
	if snaps.Vision == nil || snaps.Combined == nil {
		t.Error("vision and combined should resolve at 1330")
	}
	if client.callCount("kis_2026-02-04_1330.json") != 0 {
		t.Error("no fetch should happen for an unresolved filename")
	}
}

func TestFetchAllMemoizesByFilename(t *testing.T) {
	client := newFakeClient()
	f := NewOverrideFetcher(client)
	r := NewResolver(testIndexes())

	for i := 0; i < 3; i++ {
		if _, err := f.FetchAll(context.Background(), r, "2026-02-04", "1330"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := client.callCount("vision_2026-02-04_1330.json"); got != 1 {
		t.Errorf("repeated selections of the same time must not re-fetch, got %d calls", got)
	}
}

func TestFetchAllFailureNotCached(t *testing.T) {
	client := newFakeClient()
	client.failures["vision_2026-02-04_1330.json"] = errors.New("boom")
	f := NewOverrideFetcher(client)
	r := NewResolver(testIndexes())

	if _, err := f.FetchAll(context.Background(), r, "2026-02-04", "1330"); err == nil {
		t.Fatal("a failed resolved fetch must fail the override")
	}

	// Clearing the failure lets a retry succeed: errors are never memoized.
	client.mu.Lock()
	delete(client.failures, "vision_2026-02-04_1330.json")
	client.mu.Unlock()

	snaps, err := f.FetchAll(context.Background(), r, "2026-02-04", "1330")
	if err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
	if snaps.Vision == nil {
		t.Error("vision snapshot missing after successful retry")
	}
	if got := client.callCount("vision_2026-02-04_1330.json"); got != 2 {
		t.Errorf("expected 2 calls (failure + retry), got %d", got)
	}
}

func TestFetchAllDistinctTimesUseDistinctKeys(t *testing.T) {
	client := newFakeClient()
	f := NewOverrideFetcher(client)
	r := NewResolver(testIndexes())

	if _, err := f.FetchAll(context.Background(), r, "2026-02-04", "0700"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.FetchAll(context.Background(), r, "2026-02-04", "1330"); err != nil {
		t.Fatal(err)
	}

	// Each filename is fetched once; switching times never reuses the
	// other time's result.
	if client.callCount("vision_2026-02-04_0700.json") != 1 || client.callCount("vision_2026-02-04_1330.json") != 1 {
		t.Errorf("unexpected call counts: %v", client.calls)
	}
}
