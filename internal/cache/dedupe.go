// Package cache holds small in-process caches.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type dedupeEntry struct {
	key  string
	seen time.Time
}

// DedupeCache remembers keys for a limited time so repeated webhook
// deliveries of the same message are handled once. Entries are kept in
// last-seen order, oldest at the front.
type DedupeCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
}

// DedupeCacheOptions configures the cache. A zero TTL keeps keys until they
// are evicted for size; a zero MaxSize disables the size bound.
type DedupeCacheOptions struct {
	TTL     time.Duration
	MaxSize int
}

// NewDedupeCache creates a new deduplication cache
func NewDedupeCache(opts DedupeCacheOptions) *DedupeCache {
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	maxSize := opts.MaxSize
	if maxSize < 0 {
		maxSize = 0
	}

	return &DedupeCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Check returns true if the key was seen within TTL (duplicate).
// The key is recorded as seen now either way.
func (c *DedupeCache) Check(key string) bool {
	return c.CheckAt(key, time.Now())
}

// CheckAt is Check with an explicit clock.
func (c *DedupeCache) CheckAt(key string, now time.Time) bool {
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneExpired(now)

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*dedupeEntry).seen = now
		c.order.MoveToBack(elem)
		return true
	}

	c.entries[key] = c.order.PushBack(&dedupeEntry{key: key, seen: now})
	for c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.removeElement(c.order.Front())
	}
	return false
}

// Contains checks if key exists without updating timestamp
func (c *DedupeCache) Contains(key string) bool {
	return c.ContainsAt(key, time.Now())
}

// ContainsAt checks if key exists with explicit timestamp
func (c *DedupeCache) ContainsAt(key string, now time.Time) bool {
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	return !c.expired(elem.Value.(*dedupeEntry), now)
}

// Remove forgets a key, so its next Check is not a duplicate.
func (c *DedupeCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries
func (c *DedupeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Size returns current number of entries
func (c *DedupeCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *DedupeCache) expired(entry *dedupeEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.seen) >= c.ttl
}

// pruneExpired drops entries from the front until it reaches one still
// inside the TTL. Must be called with mu held.
func (c *DedupeCache) pruneExpired(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if !c.expired(front.Value.(*dedupeEntry), now) {
			return
		}
		c.removeElement(front)
	}
}

func (c *DedupeCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*dedupeEntry)
	delete(c.entries, entry.key)
}

// MessageDedupeKey generates a deduplication key for a message
func MessageDedupeKey(channel, messageID string) string {
	if messageID == "" {
		return ""
	}
	if channel == "" {
		return messageID
	}
	return channel + ":" + messageID
}
