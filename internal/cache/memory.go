package cache

import (
	"container/list"
	"sync"
)

// MemoryCache keeps recently used clips of both tiers in a single LRU
// bounded by total PCM bytes. It only mirrors what the disk tier holds and
// lives for one run.
type MemoryCache struct {
	mu sync.Mutex

	limit int64
	used  int64

	clips map[string]*list.Element
	order *list.List // front is most recent

	hits, misses, evictions int64
	perTier                 map[Tier]int64
}

type memoryClip struct {
	id   string
	tier Tier
	pcm  []byte
}

// NewMemoryCache returns an LRU holding at most limit bytes of PCM.
// A limit of zero disables the tier.
func NewMemoryCache(limit int64) *MemoryCache {
	return &MemoryCache{
		limit:   limit,
		clips:   make(map[string]*list.Element),
		order:   list.New(),
		perTier: make(map[Tier]int64),
	}
}

// Get returns the clip for key and marks it most recently used.
func (c *MemoryCache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.clips[key.id()]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*memoryClip).pcm, true
}

// Put stores pcm under key, evicting the least recently used clips until
// it fits. Clips larger than the whole limit are refused with
// ErrItemTooLarge.
func (c *MemoryCache) Put(key Key, pcm []byte) error {
	n := int64(len(pcm))

	c.mu.Lock()
	defer c.mu.Unlock()

	if n > c.limit {
		return ErrItemTooLarge
	}

	id := key.id()
	if elem, ok := c.clips[id]; ok {
		c.drop(elem)
	}
	for c.used+n > c.limit {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.drop(oldest)
		c.evictions++
	}

	c.clips[id] = c.order.PushFront(&memoryClip{id: id, tier: key.Tier(), pcm: pcm})
	c.used += n
	c.perTier[key.Tier()]++
	return nil
}

// Contains reports whether key is held without touching recency.
func (c *MemoryCache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.clips[key.id()]
	return ok
}

// Stats returns a snapshot of the tier's counters.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make(map[Tier]int64, len(c.perTier))
	for t, n := range c.perTier {
		if n > 0 {
			entries[t] = n
		}
	}
	return CacheStats{
		Limit:     c.limit,
		Bytes:     c.used,
		Entries:   entries,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// drop must be called with mu held.
func (c *MemoryCache) drop(elem *list.Element) {
	clip := c.order.Remove(elem).(*memoryClip)
	delete(c.clips, clip.id)
	c.used -= int64(len(clip.pcm))
	c.perTier[clip.tier]--
}
