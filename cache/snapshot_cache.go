package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"krx-signal-board/simulation"
)

// SnapshotCache is a redis read-through layer in front of the snapshot
// client. Snapshot files are append-only and immutable once written, so a
// filename is a perfect cache key; the TTL only bounds redis growth.
type SnapshotCache struct {
	inner simulation.SnapshotClient
	redis *RedisClient
	ttl   time.Duration
}

// NewSnapshotCache wraps a snapshot client. With a nil redis it degrades to
// a passthrough.
func NewSnapshotCache(inner simulation.SnapshotClient, redis *RedisClient, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{inner: inner, redis: redis, ttl: ttl}
}

func snapshotRedisKey(filename string) string {
	return fmt.Sprintf("snap:%s", filename)
}

// FetchSourceSnapshot implements simulation.SnapshotClient.
func (c *SnapshotCache) FetchSourceSnapshot(ctx context.Context, src simulation.Source, filename string) (*simulation.SourceSnapshot, error) {
	if c.redis != nil {
		var snap simulation.SourceSnapshot
		if err := c.redis.Get(ctx, snapshotRedisKey(filename), &snap); err == nil && snap.Date != "" {
			return &snap, nil
		}
	}

	snap, err := c.inner.FetchSourceSnapshot(ctx, src, filename)
	if err != nil {
		return nil, err
	}
	c.put(ctx, filename, snap)
	return snap, nil
}

// FetchCombinedSnapshot implements simulation.SnapshotClient.
func (c *SnapshotCache) FetchCombinedSnapshot(ctx context.Context, filename string) (*simulation.CombinedSnapshot, error) {
	if c.redis != nil {
		var snap simulation.CombinedSnapshot
		if err := c.redis.Get(ctx, snapshotRedisKey(filename), &snap); err == nil && snap.Date != "" {
			return &snap, nil
		}
	}

	snap, err := c.inner.FetchCombinedSnapshot(ctx, filename)
	if err != nil {
		return nil, err
	}
	c.put(ctx, filename, snap)
	return snap, nil
}

func (c *SnapshotCache) put(ctx context.Context, filename string, snap interface{}) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotRedisKey(filename), snap, c.ttl); err != nil {
		log.Printf("⚠️  Redis snapshot write failed for %s: %v", filename, err)
	}
}
