package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"krx-signal-board/simulation"
)

// IndexFetcher retrieves a source's history index from the snapshot store.
type IndexFetcher interface {
	FetchIndex(ctx context.Context, src simulation.Source) (*simulation.HistoryIndex, error)
}

// IndexCache is the shared per-source cache of history index files. Entries
// are refreshed on a TTL policy; indexes are fetched, never mutated, so
// concurrent consumers read-share them freely.
//
// An unavailable index is non-fatal: the source simply contributes no times.
// When a refresh fails and a stale copy exists, the stale copy keeps serving.
type IndexCache struct {
	fetcher IndexFetcher
	redis   *RedisClient // optional second layer, survives restarts
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[simulation.Source]*indexEntry
}

type indexEntry struct {
	index     *simulation.HistoryIndex
	fetchedAt time.Time
}

// NewIndexCache creates a cache. redis may be nil.
func NewIndexCache(fetcher IndexFetcher, redis *RedisClient, ttl time.Duration) *IndexCache {
	return &IndexCache{
		fetcher: fetcher,
		redis:   redis,
		ttl:     ttl,
		entries: make(map[simulation.Source]*indexEntry),
	}
}

func indexRedisKey(src simulation.Source) string {
	return fmt.Sprintf("index:%s", src)
}

// Indexes returns the current index of every source, loading or refreshing
// stale entries. Implements simulation.IndexProvider.
func (c *IndexCache) Indexes(ctx context.Context) simulation.IndexSet {
	out := make(simulation.IndexSet, len(simulation.Sources))
	for _, src := range simulation.Sources {
		out[src] = c.Index(ctx, src)
	}
	return out
}

// Index returns one source's index, or nil when it cannot be loaded.
func (c *IndexCache) Index(ctx context.Context, src simulation.Source) *simulation.HistoryIndex {
	c.mu.RLock()
	entry, ok := c.entries[src]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.index
	}

	idx, err := c.load(ctx, src)
	if err != nil {
		log.Printf("⚠️  Index load failed for %s: %v", src, err)
		if ok {
			// Serve stale rather than nothing.
			return entry.index
		}
		return nil
	}

	c.store(src, idx)
	return idx
}

// Refresh force-reloads every source index, bypassing TTL. It returns the
// sources whose entry count changed, so the caller can broadcast that new
// collection times appeared.
func (c *IndexCache) Refresh(ctx context.Context) []simulation.Source {
	var changed []simulation.Source
	for _, src := range simulation.Sources {
		idx, err := c.fetcher.FetchIndex(ctx, src)
		if err != nil {
			log.Printf("⚠️  Index refresh failed for %s: %v", src, err)
			continue
		}

		c.mu.RLock()
		prev, ok := c.entries[src]
		c.mu.RUnlock()

		if !ok || prev.index == nil || len(prev.index.History) != len(idx.History) {
			changed = append(changed, src)
		}

		c.store(src, idx)
		if c.redis != nil {
			if err := c.redis.Set(ctx, indexRedisKey(src), idx, c.ttl); err != nil {
				log.Printf("⚠️  Redis index write failed for %s: %v", src, err)
			}
		}
	}
	return changed
}

// load tries redis first, then the store.
func (c *IndexCache) load(ctx context.Context, src simulation.Source) (*simulation.HistoryIndex, error) {
	if c.redis != nil {
		var idx simulation.HistoryIndex
		if err := c.redis.Get(ctx, indexRedisKey(src), &idx); err == nil && idx.History != nil {
			return &idx, nil
		}
	}

	idx, err := c.fetcher.FetchIndex(ctx, src)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, indexRedisKey(src), idx, c.ttl); err != nil {
			log.Printf("⚠️  Redis index write failed for %s: %v", src, err)
		}
	}
	return idx, nil
}

func (c *IndexCache) store(src simulation.Source, idx *simulation.HistoryIndex) {
	c.mu.Lock()
	c.entries[src] = &indexEntry{index: idx, fetchedAt: time.Now()}
	c.mu.Unlock()
}
