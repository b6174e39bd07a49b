package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const hotCacheSize = 2048

// Cache persists aligned embedding vectors across process restarts. An LRU
// keeps hot entries in memory; the full map is flushed to a JSON file.
// Every operation is best-effort: a broken cache must never break retrieval.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string][]float32
	hot     *lru.Cache
	dirty   bool
}

// NewCache loads the cache file at path, tolerating a missing or corrupt
// file by starting empty.
func NewCache(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string][]float32),
	}
	c.hot, _ = lru.New(hotCacheSize)

	data, err := os.ReadFile(path)
	if err == nil {
		var stored map[string][]float32
		if json.Unmarshal(data, &stored) == nil && stored != nil {
			c.entries = stored
		}
	}
	return c
}

// Key derives the composite cache key from provider, model, and the
// already-normalized text.
func Key(provider, model, normalizedText string) string {
	h := sha256.Sum256([]byte(provider + "|" + model + "|" + normalizedText))
	return hex.EncodeToString(h[:])
}

// Get returns the cached vector for key, or nil.
func (c *Cache) Get(key string) []float32 {
	if c == nil {
		return nil
	}
	if v, ok := c.hot.Get(key); ok {
		return v.([]float32)
	}
	c.mu.Lock()
	vec, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	c.hot.Add(key, vec)
	return vec
}

// Put stores a vector and flushes the file. Failures are swallowed and never
// reach the caller, which still gets its freshly computed vector.
func (c *Cache) Put(key string, vec []float32) {
	if c == nil || len(vec) == 0 {
		return
	}
	c.hot.Add(key, vec)
	c.mu.Lock()
	c.entries[key] = vec
	c.dirty = true
	c.mu.Unlock()
	c.flush()
}

// Len returns the number of persisted entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// flush writes the full map through a temp file + rename so a crash cannot
// truncate the cache. Errors are ignored by design.
func (c *Cache) flush() {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return
	}
	data, err := json.Marshal(c.entries)
	c.dirty = false
	c.mu.Unlock()
	if err != nil {
		return
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(dir, "embed-cache-*")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	tmp.Close()
	_ = os.Rename(tmpPath, c.path)
}
