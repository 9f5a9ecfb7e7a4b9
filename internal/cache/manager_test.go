package cache

import (
	"bytes"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DiskDir = t.TempDir()
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_PutPopulatesMemoryAndDisk(t *testing.T) {
	m := newTestManager(t)

	if err := m.Put("fp1", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !m.memory.Contains("fp1") {
		t.Error("Put should populate the memory tier")
	}
	if !m.disk.Contains("fp1") {
		t.Error("Put should populate the disk tier")
	}
	if m.hot.Contains("fp1") {
		t.Error("Put must not populate the hot tier for unpinned fingerprints")
	}
}

func TestManager_PinnedPutReachesHotTier(t *testing.T) {
	m := newTestManager(t)

	m.Pin("fp-pinned")
	if err := m.Put("fp-pinned", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !m.hot.Contains("fp-pinned") {
		t.Error("pinned fingerprint should land in the hot tier")
	}
	if data, tier, ok := m.Get("fp-pinned"); !ok || tier != TierHot || !bytes.Equal(data, []byte("audio")) {
		t.Errorf("expected hot-tier hit, got tier=%v ok=%v", tier, ok)
	}
}

func TestManager_DiskHitReportsTierAndPromotes(t *testing.T) {
	m := newTestManager(t)

	// Insert only into the disk tier.
	if err := m.disk.Put("fpd", []byte("cold audio")); err != nil {
		t.Fatalf("disk Put failed: %v", err)
	}

	data, tier, ok := m.Get("fpd")
	if !ok {
		t.Fatal("expected disk hit")
	}
	if tier != TierDisk {
		t.Errorf("expected source tier disk, got %v", tier)
	}
	if !bytes.Equal(data, []byte("cold audio")) {
		t.Errorf("unexpected bytes: %q", data)
	}

	// The hit is promoted into both faster tiers.
	if !m.memory.Contains("fpd") {
		t.Error("disk hit should be promoted into the memory tier")
	}
	if !m.hot.Contains("fpd") {
		t.Error("disk hit should be promoted into the hot tier")
	}

	// A second lookup is served from the fastest tier holding a copy.
	if _, tier, _ := m.Get("fpd"); tier != TierHot {
		t.Errorf("expected promoted hit from hot tier, got %v", tier)
	}
}

func TestManager_LookupOrderHotFirst(t *testing.T) {
	m := newTestManager(t)

	m.Pin("fp")
	_ = m.Put("fp", []byte("hot copy"))

	// Make tiers disagree to observe which one serves.
	_ = m.memory.Put("fp", []byte("memory copy"))

	data, tier, ok := m.Get("fp")
	if !ok || tier != TierHot {
		t.Fatalf("expected hot-tier hit, got tier=%v ok=%v", tier, ok)
	}
	if string(data) != "hot copy" {
		t.Errorf("hot tier should win lookup order, got %q", data)
	}
}

func TestManager_MissReportsTierNone(t *testing.T) {
	m := newTestManager(t)

	if _, tier, ok := m.Get("absent"); ok || tier != TierNone {
		t.Errorf("expected total miss, got tier=%v ok=%v", tier, ok)
	}

	stats := m.Stats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 recorded miss, got %d", stats.Misses)
	}
}

func TestManager_ClearSingleTier(t *testing.T) {
	m := newTestManager(t)

	m.Pin("fp")
	_ = m.Put("fp", []byte("audio"))

	if err := m.Clear("memory"); err != nil {
		t.Fatalf("Clear(memory) failed: %v", err)
	}
	if m.memory.Contains("fp") {
		t.Error("memory tier should be empty")
	}
	if !m.hot.Contains("fp") || !m.disk.Contains("fp") {
		t.Error("clearing one tier must not touch the others")
	}
}

func TestManager_ClearAll(t *testing.T) {
	m := newTestManager(t)

	m.Pin("fp")
	_ = m.Put("fp", []byte("audio"))

	if err := m.Clear("all"); err != nil {
		t.Fatalf("Clear(all) failed: %v", err)
	}
	if m.Contains("fp") {
		t.Error("Clear(all) should empty every tier, pinned entries included")
	}
}

func TestManager_ClearUnknownTier(t *testing.T) {
	m := newTestManager(t)

	if err := m.Clear("l9"); err == nil {
		t.Error("unknown tier name should be rejected")
	}
}

func TestManager_StatsAggregate(t *testing.T) {
	m := newTestManager(t)

	_ = m.Put("a", []byte("1234"))
	_ = m.Put("b", []byte("5678"))
	m.Get("a")
	m.Get("missing")

	stats := m.Stats()
	if stats.MemoryHits != 1 {
		t.Errorf("expected 1 memory hit, got %d", stats.MemoryHits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Memory.ItemCount != 2 || stats.Disk.ItemCount != 2 {
		t.Errorf("unexpected item counts: memory=%d disk=%d",
			stats.Memory.ItemCount, stats.Disk.ItemCount)
	}
	if stats.TotalBytes() == 0 {
		t.Error("aggregate byte count should be non-zero")
	}
}
