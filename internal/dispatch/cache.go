package dispatch

import "sync"

// ContextCache memoizes shared context objects for one planning session.
// The first caller for a key runs the create function and stores the value;
// concurrent and later callers for the same key get the stored value. There
// is no eviction or expiry; Reset clears everything for the next run.
//
// The cache is an explicit object owned by a Session, never a process-wide
// singleton, so tests can isolate runs by constructing fresh sessions.
type ContextCache struct {
	mu      sync.Mutex
	entries map[string]any
}

// NewContextCache creates an empty cache.
func NewContextCache() *ContextCache {
	return &ContextCache{entries: make(map[string]any)}
}

// GetOrCreate returns the value stored under key, running create to produce
// it if the key is new. The lock is held across create, so create runs at
// most once per key no matter how many dispatches race on it. A failed
// create stores nothing; the next caller retries.
func (c *ContextCache) GetOrCreate(key string, create func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	c.entries[key] = v
	return v, nil
}

// Len returns the number of cached entries.
func (c *ContextCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *ContextCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}
