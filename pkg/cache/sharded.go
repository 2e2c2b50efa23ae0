// Package cache provides a sharded in-memory TTL cache. Sharding keeps
// lock contention low when many readers hit the cache concurrently.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// Sharded is a concurrency-safe key/value cache with per-entry expiry.
// Values come back exactly as stored; callers must not mutate them.
type Sharded[V any] struct {
	ttl    time.Duration
	shards [numShards]*shard[V]
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// New builds a cache whose entries expire ttl after being stored.
// A non-positive ttl disables expiry.
func New[V any](ttl time.Duration) *Sharded[V] {
	c := &Sharded[V]{ttl: ttl}
	for i := range c.shards {
		c.shards[i] = &shard[V]{items: make(map[string]entry[V])}
	}
	return c
}

func (c *Sharded[V]) getShard(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores value under key, resetting its expiry.
func (c *Sharded[V]) Set(key string, value V) {
	s := c.getShard(key)
	s.mu.Lock()
	s.items[key] = entry[V]{value: value, storedAt: time.Now()}
	s.mu.Unlock()
}

// Get returns the live value for key. Expired entries are removed on
// the way out, so the cache needs no sweeper.
func (c *Sharded[V]) Get(key string) (V, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		s.mu.Lock()
		// Re-check: a writer may have refreshed the entry.
		if cur, still := s.items[key]; still && cur.storedAt.Equal(e.storedAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Delete removes key if present.
func (c *Sharded[V]) Delete(key string) {
	s := c.getShard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Len counts stored entries, including any not yet evicted by Get.
func (c *Sharded[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}
