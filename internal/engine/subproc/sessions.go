package subproc

import "sync"

// SessionCache maps opaque session keys to backend-native resumption
// handles. Entries are created on the first successful invocation, updated
// when a backend reports a new handle, and live for the process lifetime.
type SessionCache struct {
	mu      sync.Mutex
	handles map[string]string
}

// NewSessionCache creates an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{handles: make(map[string]string)}
}

// Get returns the cached handle for key.
func (c *SessionCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, ok := c.handles[key]
	return handle, ok
}

// Put stores or replaces the handle for key. Empty keys and handles are
// ignored.
func (c *SessionCache) Put(key, handle string) {
	if key == "" || handle == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[key] = handle
}

// Len returns the number of cached sessions.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
