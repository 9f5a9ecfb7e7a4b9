package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item cannot fit a tier's capacity
	ErrItemTooLarge = errors.New("item too large for cache tier")

	// ErrUnknownTier is returned for an unrecognized tier name
	ErrUnknownTier = errors.New("unknown cache tier")
)

// Tier identifies one of the three cache tiers, in lookup order.
type Tier int

const (
	// TierHot is the pinned in-memory tier for preloaded phrases
	TierHot Tier = iota

	// TierMemory is the session-local LRU tier
	TierMemory

	// TierDisk is the persistent disk tier
	TierDisk

	// TierNone marks a miss across all tiers
	TierNone
)

// String returns the operator-facing tier name.
func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	default:
		return "none"
	}
}

// ParseTier maps an operator-supplied tier name to a Tier.
func ParseTier(name string) (Tier, error) {
	switch name {
	case "hot":
		return TierHot, nil
	case "memory":
		return TierMemory, nil
	case "disk":
		return TierDisk, nil
	default:
		return TierNone, ErrUnknownTier
	}
}

// Stats holds per-tier metrics.
type Stats struct {
	Capacity  int64 // capacity ceiling (bytes, or entry count for the memory tier)
	Size      int64 // occupied bytes
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64

	LastAccess time.Time
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds capacity and layout settings for all three tiers.
type Config struct {
	// Hot tier byte budget for pinned preload entries
	HotCapacity int64

	// Memory tier entry-count bound
	MemoryEntries int

	// Disk tier byte budget and backing directory
	DiskCapacity int64
	DiskDir      string

	// Optional zstd compression for disk entries. Off by default so the
	// on-disk layout is one raw audio file per fingerprint.
	Compression      bool
	CompressionLevel int
}

// DefaultConfig returns the default tier capacities: 10MB hot,
// 100 memory entries, 1GB disk.
func DefaultConfig() Config {
	return Config{
		HotCapacity:      10 * 1024 * 1024,
		MemoryEntries:    100,
		DiskCapacity:     1024 * 1024 * 1024,
		CompressionLevel: 3,
	}
}
