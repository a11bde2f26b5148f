// Package cache provides the in-process memo cache used to avoid redundant
// reads on the debt aggregation path. Entries expire after a TTL and the
// least-recently-accessed entries are evicted once a fixed ceiling is hit.
//
// Freshness depends on write paths invalidating through this cache before any
// recompute; the service layer owns that coupling (see internal/service).
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultMaxEntries is the entry ceiling when none is configured.
const DefaultMaxEntries = 1024

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is a TTL + LRU key/value cache. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently accessed
	maxEntries int

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a cache holding at most maxEntries entries.
// maxEntries <= 0 uses DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key. Expired entries are treated as
// absent and evicted lazily.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, value: value, expiresAt: c.now().Add(ttl)})
	c.entries[key] = el

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
}

// GetOrSet returns the cached value for key, or runs producer once, caches
// its result for ttl and returns it. Producer errors are returned uncached.
func (c *Cache) GetOrSet(key string, ttl time.Duration, producer func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := producer()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Invalidate drops the entry for key, if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix. Write
// paths use this to flush all views derived from one user or trip.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.removeLocked(el)
		}
	}
}

// Len reports the current number of entries, including not-yet-evicted
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}
