package telemetry

import (
	"sync"
	"time"

	"wattmon/internal/model"
)

type cacheEntry struct {
	reading  model.DeviceReading
	storedAt time.Time
}

// readingCache is a TTL cache of device readings, keyed by device id. It
// keeps repeated status polls within the TTL from hitting the cloud API.
type readingCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newReadingCache(ttl time.Duration) *readingCache {
	return &readingCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *readingCache) get(deviceID string) (model.DeviceReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[deviceID]
	if !ok || c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, deviceID)
		return model.DeviceReading{}, false
	}
	return e.reading, true
}

func (c *readingCache) put(deviceID string, r model.DeviceReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[deviceID] = cacheEntry{reading: r, storedAt: c.now()}
}

// invalidate drops the cached reading for a device, forcing the next poll to
// hit the API.
func (c *readingCache) invalidate(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, deviceID)
}
