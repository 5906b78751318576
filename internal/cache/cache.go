package cache

import (
	"cmp"
	"slices"
	"sync"
)

// Cache memoizes values by key. Entries past the soft limit are evicted in
// least recently used order, down to three quarters of the limit.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	limit   int
	clock   uint64
	stats   Stats
}

type entry[V any] struct {
	value V
	used  uint64
}

// Stats counts cache lookups.
type Stats struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// New returns a cache with the given soft limit. Zero disables eviction.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*entry[V]), limit: limit}
}

// GetOrCreate returns the value for key, calling create on a miss. create
// runs with the cache locked, so concurrent misses on a key create once.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	v, _ := c.GetOrCreateErr(key, func() (V, error) { return create(), nil })
	return v
}

// GetOrCreateErr is GetOrCreate for fallible constructors. Failed creations
// are not cached.
func (c *Cache[K, V]) GetOrCreateErr(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		e.used = c.clock
		return e.value, nil
	}
	c.stats.Misses++
	v, err := create()
	if err != nil {
		return v, err
	}
	c.entries[key] = &entry[V]{value: v, used: c.clock}
	if c.limit > 0 && len(c.entries) > c.limit {
		c.shrink()
	}
	return v, nil
}

// shrink drops the least recently used entries. c.mu is held.
func (c *Cache[K, V]) shrink() {
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		return cmp.Compare(c.entries[a].used, c.entries[b].used)
	})
	keep := max(c.limit*3/4, 1)
	for _, k := range keys[:len(keys)-keep] {
		delete(c.entries, k)
	}
}

// Range calls fn for every entry until fn returns false. The cache is
// locked for the duration.
func (c *Cache[K, V]) Range(fn func(K, V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !fn(k, e.value) {
			return
		}
	}
}

// Clear removes every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the lookup counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	return s
}
