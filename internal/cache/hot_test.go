package cache

import (
	"bytes"
	"fmt"
	"testing"
)

func TestHotCache_PinnedSurvivesTraffic(t *testing.T) {
	c := NewHotCache(100)

	c.PutPinned("pinned", make([]byte, 40))

	// Flood with non-pinned entries well past the budget.
	for i := 0; i < 10; i++ {
		_ = c.Put(fmt.Sprintf("n%d", i), make([]byte, 20))
	}

	if _, ok := c.Get("pinned"); !ok {
		t.Error("pinned entry was evicted by normal traffic")
	}
}

func TestHotCache_UnpinnedLRUEviction(t *testing.T) {
	c := NewHotCache(100)

	_ = c.Put("a", make([]byte, 40))
	_ = c.Put("b", make([]byte, 40))

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	_ = c.Put("c", make([]byte, 40))

	if c.Contains("b") {
		t.Error("least-recently-used entry b should have been evicted")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Error("recently used entries should survive")
	}
}

func TestHotCache_UnpinnedNeverDisplacesPinned(t *testing.T) {
	c := NewHotCache(100)
	c.PutPinned("p1", make([]byte, 60))

	if err := c.Put("big", make([]byte, 80)); err != ErrItemTooLarge {
		t.Errorf("expected ErrItemTooLarge for entry that cannot fit beside pinned data, got %v", err)
	}
	if !c.Contains("p1") {
		t.Error("pinned entry must not be displaced")
	}
}

func TestHotCache_ClearRemovesPinned(t *testing.T) {
	c := NewHotCache(100)
	c.PutPinned("p", []byte("data"))
	_ = c.Put("n", []byte("data"))

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if c.Contains("p") || c.Contains("n") {
		t.Error("Clear must remove everything, pinned entries included")
	}
	if c.Size() != 0 {
		t.Errorf("expected size 0 after clear, got %d", c.Size())
	}
}

func TestHotCache_GetReturnsStoredBytes(t *testing.T) {
	c := NewHotCache(1024)
	want := []byte("audio-bytes")
	c.PutPinned("k", want)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.ItemCount != 1 {
		t.Errorf("expected 1 item, got %d", stats.ItemCount)
	}
}
