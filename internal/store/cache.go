package store

import "sync"

// Cache keys. Listing and detail views are cached independently so a turn
// commit invalidates only its own conversation.
const listKey = "userChats"

// detailKey returns the cache key for one conversation's detail view.
func detailKey(id string) string { return "chat:" + id }

// cache is a keyed view cache for listing and detail reads.
//
// Writes happen only through the Client's guaranteed-on-success
// invalidation; no other component mutates cached data. The cache stores
// already-copied values, so readers never share memory with it.
type cache struct {
	mu      sync.Mutex
	entries map[string]any
}

func newCache() *cache {
	return &cache{entries: make(map[string]any)}
}

func (c *cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *cache) put(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

func (c *cache) invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
