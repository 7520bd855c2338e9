// Package cache stores the public queue display snapshot.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

const snapshotKeySuffix = "display:snapshot"

// RedisSnapshotCache keeps the latest snapshot as JSON under one key with a TTL.
type RedisSnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSnapshotCache builds the cache. A zero ttl keeps the key forever.
func NewRedisSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotCache {
	key := snapshotKeySuffix
	if prefix != "" {
		key = prefix + ":" + snapshotKeySuffix
	}
	return &RedisSnapshotCache{client: client, key: key, ttl: ttl}
}

// Load returns the cached snapshot, or nil when none is stored.
func (c *RedisSnapshotCache) Load(ctx context.Context) (*domain.QueueSnapshot, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap domain.QueueSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Store replaces the cached snapshot.
func (c *RedisSnapshotCache) Store(ctx context.Context, snapshot domain.QueueSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// MemorySnapshotCache is the in-process fallback when Redis is unavailable.
type MemorySnapshotCache struct {
	mu       sync.RWMutex
	snapshot *domain.QueueSnapshot
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySnapshotCache builds an empty cache.
func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{ttl: ttl, now: time.Now}
}

// Load returns the stored snapshot unless it has expired.
func (c *MemorySnapshotCache) Load(_ context.Context) (*domain.QueueSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil, nil
	}
	if c.ttl > 0 && c.now().Sub(c.storedAt) > c.ttl {
		return nil, nil
	}
	snap := *c.snapshot
	return &snap, nil
}

// Store replaces the stored snapshot.
func (c *MemorySnapshotCache) Store(_ context.Context, snapshot domain.QueueSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = &snapshot
	c.storedAt = c.now()
	return nil
}
