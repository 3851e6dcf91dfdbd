package site

import (
	"sync"
	"time"
)

// ModCache tracks last-seen modification timestamps per path. It is owned by
// one Builder session and carries an explicit lifecycle (Clear), so multiple
// independent build sessions in one process never cross-contaminate.
type ModCache struct {
	mu    sync.Mutex
	times map[string]time.Time
}

// NewModCache creates an empty cache.
func NewModCache() *ModCache {
	return &ModCache{times: make(map[string]time.Time)}
}

// Update records the last-seen modification time for path.
func (c *ModCache) Update(path string, mod time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.times[path] = mod
}

// Changed reports whether path's timestamp advanced past the cached value, or
// no cache entry exists.
func (c *ModCache) Changed(path string, mod time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen, ok := c.times[path]
	return !ok || mod.After(seen)
}

// Remove drops the cache entry for path.
func (c *ModCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.times, path)
}

// Known returns all cached paths.
func (c *ModCache) Known() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.times))
	for p := range c.times {
		out = append(out, p)
	}
	return out
}

// Clear empties the cache.
func (c *ModCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.times = make(map[string]time.Time)
}
