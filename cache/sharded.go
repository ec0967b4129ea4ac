// Package cache provides a sharded, hash-addressed map used for pipeline
// caching. Unlike a general-purpose LRU, entries are never evicted: cached
// values own device objects whose lifetime must match the cache entry's.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// shardMask is used for fast shard selection (DefaultShardCount - 1).
	shardMask = DefaultShardCount - 1
)

// Hasher is a function that computes a hash for a key.
// Used by Map for shard and bucket selection.
type Hasher[K any] func(K) uint64

// Equaler reports whether two keys are structurally equal. It confirms
// candidate matches within a hash bucket, so hash collisions can never
// alias two distinct keys.
type Equaler[K any] func(a, b K) bool

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash (identity hash).
func Uint64Hasher(u uint64) uint64 {
	return u
}

// Map is a thread-safe, sharded map keyed by caller-supplied hashing and
// structural equality. Keys need not be comparable, which permits
// descriptor structs containing slices.
//
// Entries persist until Clear; there is no eviction.
type Map[K any, V any] struct {
	shards [DefaultShardCount]*mapShard[K, V]
	hasher Hasher[K]
	equal  Equaler[K]

	// Statistics (atomic for zero-allocation reads)
	hits   atomic.Uint64
	misses atomic.Uint64
}

// mapShard is a single shard of the map.
// Each shard has its own mutex for reduced contention.
type mapShard[K any, V any] struct {
	mu      sync.RWMutex
	buckets map[uint64][]mapEntry[K, V]
}

// mapEntry holds a key/value pair within a hash bucket.
type mapEntry[K any, V any] struct {
	key   K
	value V
}

// NewMap creates an empty sharded map.
//
// hasher computes the bucket hash for a key; equal confirms matches within
// a bucket. Both must be non-nil and consistent: equal keys must hash
// identically.
func NewMap[K any, V any](hasher Hasher[K], equal Equaler[K]) *Map[K, V] {
	m := &Map[K, V]{
		hasher: hasher,
		equal:  equal,
	}
	for i := range m.shards {
		m.shards[i] = &mapShard[K, V]{
			buckets: make(map[uint64][]mapEntry[K, V]),
		}
	}
	return m
}

// getShard returns the shard for a given hash.
// Uses bitwise AND for fast modulo (only works with power-of-2 shard count).
func (m *Map[K, V]) getShard(hash uint64) *mapShard[K, V] {
	return m.shards[hash&shardMask]
}

// Get retrieves a cached value by key.
// Returns (value, true) if found, (zero, false) otherwise.
func (m *Map[K, V]) Get(key K) (V, bool) {
	hash := m.hasher(key)
	shard := m.getShard(hash)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	for i := range shard.buckets[hash] {
		e := &shard.buckets[hash][i]
		if m.equal(e.key, key) {
			m.hits.Add(1)
			return e.value, true
		}
	}
	m.misses.Add(1)
	var zero V
	return zero, false
}

// GetOrCreate returns a cached value or creates it using the provided
// function. The bool result reports whether the value came from the cache.
//
// The create function is called with the shard lock held to prevent
// duplicate construction of the same entry. If create fails, nothing is
// inserted and the error is returned unchanged.
func (m *Map[K, V]) GetOrCreate(key K, create func() (V, error)) (V, bool, error) {
	hash := m.hasher(key)
	shard := m.getShard(hash)

	// Fast path: read lock.
	shard.mu.RLock()
	for i := range shard.buckets[hash] {
		e := &shard.buckets[hash][i]
		if m.equal(e.key, key) {
			value := e.value
			shard.mu.RUnlock()
			m.hits.Add(1)
			return value, true, nil
		}
	}
	shard.mu.RUnlock()

	// Slow path: write lock, re-check, then create.
	shard.mu.Lock()
	defer shard.mu.Unlock()

	for i := range shard.buckets[hash] {
		e := &shard.buckets[hash][i]
		if m.equal(e.key, key) {
			m.hits.Add(1)
			return e.value, true, nil
		}
	}

	value, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}

	m.misses.Add(1)
	shard.buckets[hash] = append(shard.buckets[hash], mapEntry[K, V]{key: key, value: value})
	return value, false, nil
}

// Each calls fn once for every entry. The shard lock is held during each
// call; fn must not re-enter the map.
func (m *Map[K, V]) Each(fn func(K, V)) {
	for _, shard := range m.shards {
		shard.mu.RLock()
		for _, bucket := range shard.buckets {
			for i := range bucket {
				fn(bucket[i].key, bucket[i].value)
			}
		}
		shard.mu.RUnlock()
	}
}

// Clear removes all entries from the map.
func (m *Map[K, V]) Clear() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.buckets = make(map[uint64][]mapEntry[K, V])
		shard.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		for _, bucket := range shard.buckets {
			total += len(bucket)
		}
		shard.mu.RUnlock()
	}
	return total
}

// Stats returns current cache statistics.
// This operation is mostly lock-free (atomic counters).
func (m *Map[K, V]) Stats() Stats {
	hits := m.hits.Load()
	misses := m.misses.Load()

	var hitRate float64
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:     m.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// ResetStats resets all statistics counters to zero.
func (m *Map[K, V]) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
}

// Stats holds a point-in-time snapshot of cache counters.
type Stats struct {
	// Len is the number of cached entries.
	Len int

	// Hits is the number of lookups served from the cache.
	Hits uint64

	// Misses is the number of lookups that required construction.
	Misses uint64

	// HitRate is Hits / (Hits + Misses), or 0 before any lookup.
	HitRate float64
}
