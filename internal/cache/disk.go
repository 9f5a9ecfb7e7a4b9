package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	audioExt     = ".audio"
	zstExt       = ".zst"
	manifestName = "manifest.json"
)

// DiskCache is the persistent bottom tier: one file per entry, named by
// fingerprint, with a JSON manifest tracking size and last access. The
// manifest is a sidecar convenience; a missing or corrupt manifest is
// rebuilt by scanning the directory, so external file removal is
// tolerated.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	index map[string]*diskEntry

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	Compressed bool      `json:"compressed"`
}

type manifest struct {
	Entries map[string]*diskEntry `json:"entries"`
}

// NewDiskCache opens (or creates) the disk tier rooted at dir with the
// given byte budget. compressionLevel is the zstd level used when
// compress is set; entries written without compression are raw audio
// bytes in the request's format.
func NewDiskCache(dir string, capacity int64, compress bool, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		compress: compress,
		stats:    Stats{Capacity: capacity},
	}

	if compress {
		if compressionLevel <= 0 {
			compressionLevel = DefaultConfig().CompressionLevel
		}
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	// Decoder is always available so a cache written with compression on
	// stays readable after the option is turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.loadManifest(); err != nil {
		dc.rescan()
	}
	dc.recalculate()

	return dc, nil
}

// Get reads an entry from disk and bumps its access time. A missing or
// unreadable backing file drops the index entry and reports a miss.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(dc.path(key, entry.Compressed))
	if err != nil {
		delete(dc.index, key)
		dc.size -= entry.Size
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(dc.path(key, true))
			delete(dc.index, key)
			dc.size -= entry.Size
			dc.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes an entry, evicting least-recently-accessed entries first
// when the byte budget would be exceeded. The write is atomic (temp
// file + rename) so a crash mid-write never yields a truncated hit.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := value
	compressed := false
	if dc.compress && len(value) > 1024 {
		if enc := dc.encoder.EncodeAll(value, nil); len(enc) < len(value) {
			data = enc
			compressed = true
		}
	}
	diskSize := int64(len(data))

	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		os.Remove(dc.path(key, existing.Compressed))
		delete(dc.index, key)
		dc.size -= existing.Size
	}

	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	if err := atomicWrite(dc.path(key, compressed), data); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Size:       diskSize,
		Created:    now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	dc.stats.Size = dc.size

	dc.saveManifest()
	return nil
}

// Contains checks the index without touching the backing file.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	_, ok := dc.index[key]
	return ok
}

// Delete removes one entry and its backing file.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		return nil
	}
	os.Remove(dc.path(key, entry.Compressed))
	delete(dc.index, key)
	dc.size -= entry.Size
	dc.stats.Size = dc.size
	dc.saveManifest()
	return nil
}

// Clear removes all entries and backing files.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		os.Remove(dc.path(key, entry.Compressed))
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	dc.stats.Size = 0
	return dc.saveManifest()
}

// Size returns occupied bytes.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns tier metrics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	return stats
}

// Close persists the manifest, including access-time bumps from reads.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveManifest()
}

func (dc *DiskCache) path(key string, compressed bool) string {
	ext := audioExt
	if compressed {
		ext = zstExt
	}
	return filepath.Join(dc.dir, key+ext)
}

// evictOldest removes the entry with the oldest access time (lock held).
func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range dc.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}

	entry := dc.index[oldestKey]
	os.Remove(dc.path(oldestKey, entry.Compressed))
	delete(dc.index, oldestKey)
	dc.size -= entry.Size
	dc.stats.Evictions++
}

func (dc *DiskCache) loadManifest() error {
	data, err := os.ReadFile(filepath.Join(dc.dir, manifestName))
	if err != nil {
		return err
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m.Entries == nil {
		m.Entries = make(map[string]*diskEntry)
	}

	// Drop index entries whose backing files were removed externally.
	for key, entry := range m.Entries {
		if _, err := os.Stat(dc.path(key, entry.Compressed)); err != nil {
			delete(m.Entries, key)
		}
	}
	dc.index = m.Entries
	return nil
}

// saveManifest writes the sidecar index atomically (lock held). Failure
// is non-fatal: the index is rebuilt by rescan on next open.
func (dc *DiskCache) saveManifest() error {
	data, err := json.MarshalIndent(manifest{Entries: dc.index}, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(dc.dir, manifestName), data)
}

// rescan rebuilds the index from the directory contents.
func (dc *DiskCache) rescan() {
	dc.index = make(map[string]*diskEntry)

	files, err := os.ReadDir(dc.dir)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		var key string
		var compressed bool
		switch {
		case strings.HasSuffix(name, audioExt):
			key = strings.TrimSuffix(name, audioExt)
		case strings.HasSuffix(name, zstExt):
			key = strings.TrimSuffix(name, zstExt)
			compressed = true
		default:
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}
		dc.index[key] = &diskEntry{
			Size:       info.Size(),
			Created:    info.ModTime(),
			LastAccess: info.ModTime(),
			Compressed: compressed,
		}
	}
}

func (dc *DiskCache) recalculate() {
	dc.size = 0
	for _, entry := range dc.index {
		dc.size += entry.Size
	}
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

// atomicWrite writes to a temporary name then renames into place so a
// crash mid-write never leaves a truncated file under the final name.
func atomicWrite(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
