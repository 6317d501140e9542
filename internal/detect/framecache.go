package detect

import (
	"sync"
)

// FrameCache keeps the most recent raw frame per identity, used as an
// alert attachment when a confirmation fires. At most one entry per
// identity; entries are evicted on disconnect, so the cache is bounded
// by the number of connected users.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]string
}

func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]string),
	}
}

// Put overwrites the cached frame for the identity.
func (c *FrameCache) Put(userID, payload string) {
	c.mu.Lock()
	c.frames[userID] = payload
	c.mu.Unlock()
}

// Get returns the most recent frame for the identity. Absence is not an
// error; callers send alerts without an attachment in that case.
func (c *FrameCache) Get(userID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.frames[userID]
	return payload, ok
}

func (c *FrameCache) Evict(userID string) {
	c.mu.Lock()
	delete(c.frames, userID)
	c.mu.Unlock()
}

func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}
