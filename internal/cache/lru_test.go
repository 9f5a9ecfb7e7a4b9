package cache

import (
	"fmt"
	"testing"
)

func TestLRUCache_EvictsOldestFirst(t *testing.T) {
	c := NewLRUCache(3)

	for i := 1; i <= 3; i++ {
		_ = c.Put(fmt.Sprintf("k%d", i), []byte("v"))
	}

	// k1 is oldest; adding k4 should evict it.
	_ = c.Put("k4", []byte("v"))

	if c.Contains("k1") {
		t.Error("k1 should have been evicted")
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if !c.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_AccessResetsRecency(t *testing.T) {
	c := NewLRUCache(3)

	_ = c.Put("k1", []byte("v"))
	_ = c.Put("k2", []byte("v"))
	_ = c.Put("k3", []byte("v"))

	// Touch k1 so k2 becomes the oldest.
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected hit for k1")
	}

	_ = c.Put("k4", []byte("v"))

	if c.Contains("k2") {
		t.Error("k2 should have been evicted after k1 was touched")
	}
	if !c.Contains("k1") {
		t.Error("recently accessed k1 should survive")
	}
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	c := NewLRUCache(2)

	_ = c.Put("k", []byte("old"))
	_ = c.Put("k", []byte("new-longer-value"))

	got, ok := c.Get("k")
	if !ok || string(got) != "new-longer-value" {
		t.Errorf("expected updated value, got %q (ok=%v)", got, ok)
	}

	stats := c.Stats()
	if stats.ItemCount != 1 {
		t.Errorf("update should not duplicate the entry, got %d items", stats.ItemCount)
	}
	if stats.Size != int64(len("new-longer-value")) {
		t.Errorf("size should track the new value, got %d", stats.Size)
	}
}

func TestLRUCache_Clear(t *testing.T) {
	c := NewLRUCache(10)
	_ = c.Put("k", []byte("v"))

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if c.Contains("k") || c.Size() != 0 {
		t.Error("Clear should remove all entries")
	}
}

func TestLRUCache_StatsCountHitsAndMisses(t *testing.T) {
	c := NewLRUCache(10)
	_ = c.Put("k", []byte("v"))

	c.Get("k")
	c.Get("absent")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate() != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", stats.HitRate())
	}
}
