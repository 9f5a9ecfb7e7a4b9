package cache

import (
	"container/list"
	"sync"
	"time"
)

// HotCache is the fastest tier: a small byte-budgeted in-memory store
// for curated preload phrases. Pinned entries are never evicted by
// normal traffic. Non-pinned entries may be admitted via promotion and
// are evicted least-recently-used first, always before any pinned entry.
type HotCache struct {
	capacity int64
	size     int64

	entries map[string]*hotEntry

	// LRU ordering for non-pinned entries only
	unpinned map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type hotEntry struct {
	key    string
	value  []byte
	size   int64
	pinned bool
}

// NewHotCache creates a hot cache with the given byte budget.
func NewHotCache(capacity int64) *HotCache {
	return &HotCache{
		capacity: capacity,
		entries:  make(map[string]*hotEntry),
		unpinned: make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value. A hit on a non-pinned entry bumps its recency.
func (c *HotCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	if elem, ok := c.unpinned[key]; ok {
		c.eviction.MoveToFront(elem)
	}

	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return entry.value, true
}

// PutPinned admits a preload entry that normal traffic never evicts.
// Non-pinned entries are evicted as needed to make room; a curated
// preload set is admitted even if it alone exceeds the budget, since
// only an explicit Clear removes pinned data.
func (c *HotCache) PutPinned(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(key)

	entry := &hotEntry{key: key, value: value, size: int64(len(value)), pinned: true}
	for c.size+entry.size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldestUnpinned()
	}

	c.entries[key] = entry
	c.size += entry.size
	c.stats.Size = c.size
}

// Put admits a non-pinned entry, subject to the tier budget. Pinned
// entries are never displaced for it; if the entry cannot fit in the
// space not held by pinned data, admission fails.
func (c *HotCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))
	pinnedSize := c.pinnedSize()
	if valueSize > c.capacity-pinnedSize {
		return ErrItemTooLarge
	}

	c.remove(key)

	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldestUnpinned()
	}

	entry := &hotEntry{key: key, value: value, size: valueSize}
	c.entries[key] = entry
	c.unpinned[key] = c.eviction.PushFront(entry)
	c.size += valueSize
	c.stats.Size = c.size
	return nil
}

// Contains checks for a key without updating recency.
func (c *HotCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// Clear removes everything, pinned preload entries included. This backs
// the explicit operator clear command.
func (c *HotCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*hotEntry)
	c.unpinned = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
	return nil
}

// Size returns occupied bytes.
func (c *HotCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns tier metrics.
func (c *HotCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.entries))
	return stats
}

// remove deletes an entry regardless of pinning (lock held).
func (c *HotCache) remove(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	if elem, ok := c.unpinned[key]; ok {
		c.eviction.Remove(elem)
		delete(c.unpinned, key)
	}
	delete(c.entries, key)
	c.size -= entry.size
}

func (c *HotCache) pinnedSize() int64 {
	total := int64(0)
	for _, e := range c.entries {
		if e.pinned {
			total += e.size
		}
	}
	return total
}

// evictOldestUnpinned drops the least-recently-used non-pinned entry
// (lock held).
func (c *HotCache) evictOldestUnpinned() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*hotEntry)
	c.eviction.Remove(elem)
	delete(c.unpinned, entry.key)
	delete(c.entries, entry.key)
	c.size -= entry.size
	c.stats.Evictions++
}
