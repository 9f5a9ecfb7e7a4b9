package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is the session-local middle tier: bounded by entry count
// with strict least-recently-used eviction. It lives only for the
// process lifetime.
type LRUCache struct {
	maxEntries int
	size       int64 // occupied bytes, tracked for stats only

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type lruEntry struct {
	key   string
	value []byte
	size  int64
}

// NewLRUCache creates an LRU cache bounded to maxEntries items.
func NewLRUCache(maxEntries int) *LRUCache {
	return &LRUCache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stats:      Stats{Capacity: int64(maxEntries)},
	}
}

// Get retrieves a value and bumps its recency.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*lruEntry).value, true
}

// Put stores a value, evicting the least-recently-used entry when the
// count bound is exceeded.
func (c *LRUCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lruEntry)
		c.size += valueSize - entry.size
		entry.value = value
		entry.size = valueSize
		c.stats.Size = c.size
		return nil
	}

	for c.eviction.Len() >= c.maxEntries && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	entry := &lruEntry{key: key, value: value, size: valueSize}
	c.items[key] = c.eviction.PushFront(entry)
	c.size += valueSize
	c.stats.Size = c.size
	return nil
}

// Contains checks for a key without updating recency.
func (c *LRUCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Clear removes all entries.
func (c *LRUCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
	return nil
}

// Size returns occupied bytes.
func (c *LRUCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns tier metrics. Capacity is an entry count for this tier.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	return stats
}

// evictOldest removes the least-recently-used entry (lock held).
func (c *LRUCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*lruEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= entry.size
	c.stats.Evictions++
}
