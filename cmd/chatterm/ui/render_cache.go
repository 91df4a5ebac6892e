package ui

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// RenderCache memoizes rendered markdown keyed by a hash of its inputs.
// Once it holds maxSize entries it is cleared and starts over.
type RenderCache struct {
	mu      sync.RWMutex
	entries map[uint64]string
	maxSize int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRenderCache creates a new render cache with the specified max size.
func NewRenderCache(maxSize int) *RenderCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &RenderCache{
		entries: make(map[uint64]string),
		maxSize: maxSize,
	}
}

// ComputeKey hashes strings, ints and bools into a cache key. Each input is
// length- or type-delimited so ("ab", "c") and ("a", "bc") differ.
func ComputeKey(inputs ...interface{}) uint64 {
	h := fnv.New64a()
	var b [8]byte

	putUint := func(u uint64) {
		for i := range b {
			b[i] = byte(u >> (8 * i))
		}
		h.Write(b[:])
	}

	for _, input := range inputs {
		switch v := input.(type) {
		case string:
			putUint(uint64(len(v)))
			h.Write([]byte(v))
		case int:
			putUint(uint64(v))
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}

	return h.Sum64()
}

// Get retrieves cached content if available.
func (rc *RenderCache) Get(key uint64) (string, bool) {
	rc.mu.RLock()
	content, ok := rc.entries[key]
	rc.mu.RUnlock()
	if ok {
		rc.hits.Add(1)
	} else {
		rc.misses.Add(1)
	}
	return content, ok
}

// Set stores rendered content in the cache.
func (rc *RenderCache) Set(key uint64, content string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, exists := rc.entries[key]; !exists && len(rc.entries) >= rc.maxSize {
		rc.entries = make(map[uint64]string)
	}
	rc.entries[key] = content
}

// GetOrCompute retrieves from cache or computes if missing.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	if content, ok := rc.Get(key); ok {
		return content
	}

	content := compute()
	rc.Set(key, content)
	return content
}

// Len returns the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.entries)
}

// Stats returns the hit and miss counters.
func (rc *RenderCache) Stats() (hits, misses int64) {
	return rc.hits.Load(), rc.misses.Load()
}

// Clear empties the cache.
func (rc *RenderCache) Clear() {
	rc.mu.Lock()
	rc.entries = make(map[uint64]string)
	rc.mu.Unlock()
}
