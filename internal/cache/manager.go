package cache

import (
	"fmt"
	"sync"
)

// Manager composes the three tiers behind one facade. Lookups run
// Hot → Memory → Disk, first hit wins; hits found in a slower tier are
// promoted into the faster tiers (copy, not move — each tier owns its
// bytes). Writes go to Memory and Disk; the Hot tier only accepts
// entries whose fingerprint has been pinned, which happens during the
// preload phase.
type Manager struct {
	hot    *HotCache
	memory *LRUCache
	disk   *DiskCache

	mu     sync.Mutex
	pinned map[string]bool

	stats struct {
		hotHits    int64
		memoryHits int64
		diskHits   int64
		misses     int64
		promotions int64
	}
}

// ManagerStats aggregates per-tier metrics for the cache-stats command.
type ManagerStats struct {
	Hot    Stats
	Memory Stats
	Disk   Stats

	HotHits    int64
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Promotions int64
}

// TotalBytes returns occupied bytes across all tiers.
func (s ManagerStats) TotalBytes() int64 {
	return s.Hot.Size + s.Memory.Size + s.Disk.Size
}

// TotalEntries returns entry counts across all tiers. Promoted entries
// are counted once per tier holding a copy.
func (s ManagerStats) TotalEntries() int64 {
	return s.Hot.ItemCount + s.Memory.ItemCount + s.Disk.ItemCount
}

// NewManager builds the three tiers from cfg.
func NewManager(cfg Config) (*Manager, error) {
	disk, err := NewDiskCache(cfg.DiskDir, cfg.DiskCapacity, cfg.Compression, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("disk tier: %w", err)
	}

	return &Manager{
		hot:    NewHotCache(cfg.HotCapacity),
		memory: NewLRUCache(cfg.MemoryEntries),
		disk:   disk,
		pinned: make(map[string]bool),
	}, nil
}

// Get looks the fingerprint up tier by tier and reports which tier
// served the hit. Promotion into faster tiers is best-effort and never
// fails the lookup.
func (m *Manager) Get(key string) ([]byte, Tier, bool) {
	if data, ok := m.hot.Get(key); ok {
		m.count(TierHot)
		return data, TierHot, true
	}

	if data, ok := m.memory.Get(key); ok {
		m.count(TierMemory)
		m.promote(key, data, TierMemory)
		return data, TierMemory, true
	}

	if data, ok := m.disk.Get(key); ok {
		m.count(TierDisk)
		m.promote(key, data, TierDisk)
		return data, TierDisk, true
	}

	m.count(TierNone)
	return nil, TierNone, false
}

// Put writes the entry into the Memory and Disk tiers, and into the Hot
// tier when the fingerprint is pinned. Tier write failures degrade that
// tier silently: caching is an optimization, not a correctness
// requirement, so the error reports only total failure of the disk
// write (callers may log it and continue).
func (m *Manager) Put(key string, value []byte) error {
	_ = m.memory.Put(key, value)

	if m.IsPinned(key) {
		m.hot.PutPinned(key, value)
	}

	return m.disk.Put(key, value)
}

// Pin marks a fingerprint as hot-cache-eligible. Subsequent Put calls
// for it land in the Hot tier as never-evicted preload entries.
func (m *Manager) Pin(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[key] = true
}

// IsPinned reports whether the fingerprint is hot-cache-eligible.
func (m *Manager) IsPinned(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned[key]
}

// Contains reports whether any tier holds the fingerprint, without
// touching recency.
func (m *Manager) Contains(key string) bool {
	return m.hot.Contains(key) || m.memory.Contains(key) || m.disk.Contains(key)
}

// Clear empties one named tier, or every tier when name is "all" or
// empty. Clearing the hot tier removes pinned preload entries too; that
// is an explicit operator action.
func (m *Manager) Clear(name string) error {
	if name == "" || name == "all" {
		_ = m.hot.Clear()
		_ = m.memory.Clear()
		return m.disk.Clear()
	}

	tier, err := ParseTier(name)
	if err != nil {
		return fmt.Errorf("%w: %q (expected hot, memory, disk, or all)", ErrUnknownTier, name)
	}
	switch tier {
	case TierHot:
		return m.hot.Clear()
	case TierMemory:
		return m.memory.Clear()
	default:
		return m.disk.Clear()
	}
}

// Stats returns per-tier and aggregate metrics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		Hot:        m.hot.Stats(),
		Memory:     m.memory.Stats(),
		Disk:       m.disk.Stats(),
		HotHits:    m.stats.hotHits,
		MemoryHits: m.stats.memoryHits,
		DiskHits:   m.stats.diskHits,
		Misses:     m.stats.misses,
		Promotions: m.stats.promotions,
	}
}

// Close persists the disk manifest.
func (m *Manager) Close() error {
	return m.disk.Close()
}

// promote copies a hit into the tiers faster than source. Admission is
// subject to each tier's own policy; failure is silently skipped.
func (m *Manager) promote(key string, data []byte, source Tier) {
	promoted := false

	if source == TierDisk {
		if !m.memory.Contains(key) {
			_ = m.memory.Put(key, data)
			promoted = true
		}
	}

	if !m.hot.Contains(key) {
		if m.IsPinned(key) {
			m.hot.PutPinned(key, data)
			promoted = true
		} else if m.hot.Put(key, data) == nil {
			promoted = true
		}
	}

	if promoted {
		m.mu.Lock()
		m.stats.promotions++
		m.mu.Unlock()
	}
}

func (m *Manager) count(tier Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch tier {
	case TierHot:
		m.stats.hotHits++
	case TierMemory:
		m.stats.memoryHits++
	case TierDisk:
		m.stats.diskHits++
	default:
		m.stats.misses++
	}
}
