package mcptx

import (
	"sort"
	"sync"
	"time"
)

// dedupSoftCap and dedupTrimCount implement the cache's soft size
// bound: once the cache holds more than dedupSoftCap entries, the
// oldest dedupTrimCount by completion time are evicted.
const (
	dedupSoftCap   = 1000
	dedupTrimCount = 100
)

type dedupEntry struct {
	meta      ResponseMeta
	value     any
	completed time.Time
}

// dedupCache maps an idempotency key to the most recent result
// completed under that key, visible for a sliding window. Both
// successful and failed results are stored, so a sustained failure
// against one key does not retry-storm on every caller.
//
// Private to a single Session; never shared across sessions.
type dedupCache struct {
	mu      sync.Mutex
	entries map[string]dedupEntry
	window  time.Duration
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{
		entries: make(map[string]dedupEntry),
		window:  window,
	}
}

// lookup returns a copy of the cached result for key with Duplicate
// set, or ok=false if no live entry exists. An expired entry is
// deleted as a side effect of the lookup.
func (c *dedupCache) lookup(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return Result{}, false
	}
	if time.Since(entry.completed) > c.window {
		delete(c.entries, key)
		return Result{}, false
	}

	meta := entry.meta
	meta.Duplicate = true
	return Result{Value: entry.value, Meta: meta}, true
}

// store inserts or replaces the entry for key, then evicts everything
// past the window and, if the cache is still over the soft cap,
// trims the oldest dedupTrimCount entries by completion time.
func (c *dedupCache) store(key string, meta ResponseMeta, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = dedupEntry{meta: meta, value: value, completed: time.Now()}

	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.completed) > c.window {
			delete(c.entries, k)
		}
	}

	if len(c.entries) <= dedupSoftCap {
		return
	}

	type keyed struct {
		key       string
		completed time.Time
	}
	ordered := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		ordered = append(ordered, keyed{k, e.completed})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].completed.Before(ordered[j].completed) })

	trim := dedupTrimCount
	if trim > len(ordered) {
		trim = len(ordered)
	}
	for _, k := range ordered[:trim] {
		delete(c.entries, k.key)
	}
}

// clear empties the cache. Used by Session.Close.
func (c *dedupCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]dedupEntry)
}

// len reports the number of live entries, including ones that have
// expired but not yet been swept; used only by tests.
func (c *dedupCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
