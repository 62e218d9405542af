// Package cache provides an in-memory TTL cache with ETag support for
// read-mostly API responses such as the station directory.
package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

const (
	TTLStations = 24 * time.Hour // Station list only changes on restart

	evictEvery = 5 * time.Minute
)

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Stats is a snapshot of cache occupancy.
type Stats struct {
	Enabled     bool `json:"enabled"`
	TotalKeys   int  `json:"total_keys"`
	ActiveKeys  int  `json:"active_keys"`
	ExpiredKeys int  `json:"expired_keys"`
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	now     func() time.Time
}

// New creates a cache. Pass enabled=false for a pass-through cache that
// still computes ETags. The eviction loop stops when ctx is cancelled.
func New(ctx context.Context, enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
		now:     time.Now,
	}
	if enabled {
		go c.evictLoop(ctx)
	}
	return c
}

// Get returns the cached bytes and ETag for key.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || c.now().After(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores data under key and returns its ETag.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	c.mu.Lock()
	c.entries[key] = entry{data: data, etag: etag, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return etag
}

// Invalidate drops key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	s := Stats{Enabled: c.enabled, TotalKeys: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			s.ActiveKeys++
		}
	}
	s.ExpiredKeys = s.TotalKeys - s.ActiveKeys
	return s
}

func (c *Cache) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag generates a weak ETag from response bytes.
func ComputeETag(data []byte) string {
	sum := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, sum[:8])
}

// CheckETagMatch reports whether an If-None-Match header matches etag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	switch ifNoneMatch {
	case "":
		return false
	case "*":
		return true
	}
	return ifNoneMatch == etag
}
