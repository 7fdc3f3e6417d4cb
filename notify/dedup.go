package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// cacheEntry tracks one seen dedupe key.
type cacheEntry struct {
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// Cache remembers recently seen dedupe keys with a TTL. It is an
// injectable collaborator, not a process-wide singleton: wire one
// instance per deduplication scope.
type Cache struct {
	entries         map[string]*cacheEntry
	mutex           sync.Mutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// CacheConfig holds configuration for the dedupe cache.
type CacheConfig struct {
	TTL             time.Duration // How long a key suppresses repeats
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for notification
// deduplication: a key suppresses repeats for a day, roughly one due
// cycle.
var DefaultCacheConfig = CacheConfig{
	TTL:             24 * time.Hour,
	MaxEntries:      10000,
	CleanupInterval: 15 * time.Minute,
}

// NewCache creates a dedupe cache with the given configuration.
func NewCache(config CacheConfig) *Cache {
	cache := &Cache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go cache.cleanupLoop()
	return cache
}

// SeenOrMark reports whether key was already seen and not expired,
// marking it seen either way.
func (c *Cache) SeenOrMark(key string) bool {
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if exists && now.Before(entry.ExpiresAt) {
		entry.AccessedAt = now
		return true
	}

	c.entries[key] = &cacheEntry{
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup(now)
	}
	return false
}

// cleanup removes expired entries, then the least recently accessed
// ones while still over the limit. Caller holds the mutex.
func (c *Cache) cleanup(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) > c.maxEntries {
		type keyAccess struct {
			key        string
			accessedAt time.Time
		}
		keyAccessList := make([]keyAccess, 0, len(c.entries))
		for key, entry := range c.entries {
			keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
		}
		sort.Slice(keyAccessList, func(i, j int) bool {
			return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
		})

		entriesToRemove := len(c.entries) - c.maxEntries
		for i := 0; i < entriesToRemove && i < len(keyAccessList); i++ {
			delete(c.entries, keyAccessList[i].key)
		}
	}
}

// cleanupLoop runs periodic cleanup.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup(time.Now())
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *Cache) Close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expired := 0
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}
	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}

// CacheStats provides information about cache contents.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

// Deduper wraps a Notifier and drops events whose idempotency key was
// already delivered within the cache TTL.
type Deduper struct {
	next  Notifier
	cache *Cache
}

// NewDeduper wraps next with key-based deduplication.
func NewDeduper(next Notifier, cache *Cache) *Deduper {
	return &Deduper{next: next, cache: cache}
}

func (d *Deduper) Notify(ctx context.Context, userIDs []string, ev Event) error {
	if ev.Key != "" && d.cache.SeenOrMark(ev.Key) {
		return nil
	}
	return d.next.Notify(ctx, userIDs, ev)
}
