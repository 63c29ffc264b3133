package simulation

import (
	"context"
	"sync"
)

// SnapshotClient retrieves snapshot files from the external store. Fetches
// are idempotent and cacheable by filename; failures are already retried a
// bounded number of times by the implementation.
type SnapshotClient interface {
	FetchSourceSnapshot(ctx context.Context, src Source, filename string) (*SourceSnapshot, error)
	FetchCombinedSnapshot(ctx context.Context, filename string) (*CombinedSnapshot, error)
}

// OverrideSnapshots holds the per-source snapshots fetched for an overridden
// time. A nil field means the source had no snapshot at that time and
// contributes an empty category.
type OverrideSnapshots struct {
	Vision   *SourceSnapshot
	KIS      *SourceSnapshot
	Combined *CombinedSnapshot
}

// OverrideFetcher retrieves the three per-source snapshots for an overridden
// collection time. Results are memoized by filename, so repeated selections
// of the same time never re-fetch, and a time switch mid-flight cannot apply
// a stale result: the new selection resolves to different filenames and the
// old fetch only ever lands under its own key.
type OverrideFetcher struct {
	client SnapshotClient

	mu       sync.Mutex
	source   map[string]*sourceCall
	combined map[string]*combinedCall
}

type sourceCall struct {
	done chan struct{}
	snap *SourceSnapshot
	err  error
}

type combinedCall struct {
	done chan struct{}
	snap *CombinedSnapshot
	err  error
}

// NewOverrideFetcher creates a fetcher backed by the given client.
func NewOverrideFetcher(client SnapshotClient) *OverrideFetcher {
	return &OverrideFetcher{
		client:   client,
		source:   make(map[string]*sourceCall),
		combined: make(map[string]*combinedCall),
	}
}

// FetchAll resolves the filename of each source for (date, time) and
// retrieves the snapshots concurrently. A source with no matching index
// entry contributes nil, which is not an error. A fetch failure on a
// resolved filename fails the whole override (fail closed, the caller falls
// back to the baseline).
func (f *OverrideFetcher) FetchAll(ctx context.Context, r *Resolver, date, t string) (*OverrideSnapshots, error) {
	visionFile := r.ResolveFilename(SourceVision, date, t)
	kisFile := r.ResolveFilename(SourceKIS, date, t)
	combinedFile := r.ResolveFilename(SourceCombined, date, t)

	var (
		wg   sync.WaitGroup
		out  OverrideSnapshots
		errs [3]error
	)

	if visionFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Vision, errs[0] = f.fetchSource(ctx, SourceVision, visionFile)
		}()
	}
	if kisFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.KIS, errs[1] = f.fetchSource(ctx, SourceKIS, kisFile)
		}()
	}
	if combinedFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Combined, errs[2] = f.fetchCombined(ctx, combinedFile)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// fetchSource memoizes vision/kis snapshot fetches by filename. Concurrent
// requests for the same filename share one in-flight call; failed calls are
// not cached so a later request retries.
func (f *OverrideFetcher) fetchSource(ctx context.Context, src Source, filename string) (*SourceSnapshot, error) {
	f.mu.Lock()
	if call, ok := f.source[filename]; ok {
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.snap, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &sourceCall{done: make(chan struct{})}
	f.source[filename] = call
	f.mu.Unlock()

	call.snap, call.err = f.client.FetchSourceSnapshot(ctx, src, filename)
	close(call.done)

	if call.err != nil {
		f.mu.Lock()
		delete(f.source, filename)
		f.mu.Unlock()
	}
	return call.snap, call.err
}

func (f *OverrideFetcher) fetchCombined(ctx context.Context, filename string) (*CombinedSnapshot, error) {
	f.mu.Lock()
	if call, ok := f.combined[filename]; ok {
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.snap, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &combinedCall{done: make(chan struct{})}
	f.combined[filename] = call
	f.mu.Unlock()

	call.snap, call.err = f.client.FetchCombinedSnapshot(ctx, filename)
	close(call.done)

	if call.err != nil {
		f.mu.Lock()
		delete(f.combined, filename)
		f.mu.Unlock()
	}
	return call.snap, call.err
}
