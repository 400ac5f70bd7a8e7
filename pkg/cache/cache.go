// Package cache provides the per-session result cache for built diagrams.
// Keys are request fingerprints (see diagram.CacheKey); any change to the
// underlying mitigation text changes the key, so stale edge sets cannot be
// served. The only eviction beyond LRU capacity is a full clear on data
// reload, which is all a single-session tool needs.
package cache

import (
	"container/list"
	"sync"

	"github.com/ecorisk/bowtie/pkg/diagram"
)

// GraphCache is an LRU cache of built graphs.
type GraphCache struct {
	maxSize int
	cache   map[string]*cacheEntry
	lru     *list.List
	mu      sync.Mutex
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key     string
	value   *diagram.Graph
	element *list.Element
}

// DefaultSize bounds the cache at a generous ceiling for one session's
// worth of display-toggle combinations.
const DefaultSize = 64

// New creates an LRU graph cache with the specified maximum size.
func New(maxSize int) *GraphCache {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	return &GraphCache{
		maxSize: maxSize,
		cache:   make(map[string]*cacheEntry),
		lru:     list.New(),
	}
}

// GetOrBuild returns the cached graph for key, invoking build on a miss and
// caching its result. The returned bool reports whether the value was served
// from cache.
func (gc *GraphCache) GetOrBuild(key string, build func() *diagram.Graph) (*diagram.Graph, bool) {
	gc.mu.Lock()
	if entry, ok := gc.cache[key]; ok {
		gc.lru.MoveToFront(entry.element)
		gc.hits++
		gc.mu.Unlock()
		return entry.value, true
	}
	gc.misses++
	gc.mu.Unlock()

	// Build outside the lock; a synchronous single-session pipeline has no
	// duplicate-build stampede to guard against.
	value := build()

	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.put(key, value)
	return value, false
}

// Get retrieves a cached graph, or nil.
func (gc *GraphCache) Get(key string) *diagram.Graph {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	entry, ok := gc.cache[key]
	if !ok {
		gc.misses++
		return nil
	}
	gc.lru.MoveToFront(entry.element)
	gc.hits++
	return entry.value
}

// Put adds or updates a cached graph.
func (gc *GraphCache) Put(key string, value *diagram.Graph) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.put(key, value)
}

func (gc *GraphCache) put(key string, value *diagram.Graph) {
	if entry, ok := gc.cache[key]; ok {
		entry.value = value
		gc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, value: value}
	entry.element = gc.lru.PushFront(entry)
	gc.cache[key] = entry

	if gc.lru.Len() > gc.maxSize {
		gc.evictOldest()
	}
}

func (gc *GraphCache) evictOldest() {
	oldest := gc.lru.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cacheEntry)
	gc.lru.Remove(oldest)
	delete(gc.cache, entry.key)
}

// Clear removes all entries. Called on any data reload.
func (gc *GraphCache) Clear() {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.cache = make(map[string]*cacheEntry)
	gc.lru = list.New()
}

// Size returns the current number of entries.
func (gc *GraphCache) Size() int {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.lru.Len()
}

// HitRate returns the cache hit rate (0.0 - 1.0).
func (gc *GraphCache) HitRate() float64 {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	total := gc.hits + gc.misses
	if total == 0 {
		return 0.0
	}
	return float64(gc.hits) / float64(total)
}

// Stats returns hit and miss counts.
func (gc *GraphCache) Stats() (hits, misses uint64) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.hits, gc.misses
}
