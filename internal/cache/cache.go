package cache

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL cache for project list/detail responses.
// It is best-effort: Invalidate never blocks a mutation, and a stale miss is
// always safe because readers fall through to the database.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	value     any
	expiresAt time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// AllProjectsKey caches the public project listing.
const AllProjectsKey = "projects:all"

// ProjectKey and ClientProjectsKey are the cache keys mutated by every
// escrow/status change.
func ProjectKey(id string) string        { return "project:" + id }
func ClientProjectsKey(id string) string { return "client-projects:" + id }
