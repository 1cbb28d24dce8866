package backend

import (
	"sync"
	"time"
)

// Per-endpoint cache TTLs. Endpoints not listed use defaultTTL.
const (
	voicesTTL    = 3600 * time.Second
	settingsTTL  = 1800 * time.Second
	analyticsTTL = 300 * time.Second
	defaultTTL   = 300 * time.Second
)

// ttlFor returns the cache TTL for the logical endpoint name.
func ttlFor(endpoint string) time.Duration {
	switch endpoint {
	case "voices":
		return voicesTTL
	case "settings":
		return settingsTTL
	case "analytics":
		return analyticsTTL
	default:
		return defaultTTL
	}
}

// cacheEntry is one cached GET response body.
type cacheEntry struct {
	data    []byte
	expires time.Time
}

// responseCache is a TTL cache for GET response bodies, keyed by
// endpoint-derived cache keys (e.g., "voices?language=en").
// Safe for concurrent use.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(now func() time.Time) *responseCache {
	if now == nil {
		now = time.Now
	}
	return &responseCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// get returns the cached body for key if present and unexpired.
func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// put stores body under key with the given TTL.
func (c *responseCache) put(key string, body []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		data:    body,
		expires: c.now().Add(ttl),
	}
}

// invalidate removes every entry whose key starts with prefix. Used before a
// mutating call returns, so the next read refetches.
func (c *responseCache) invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}
