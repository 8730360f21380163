// Package doccache keeps recently inspected schematic headers so repeated
// listings do not re-open files. Entries expire after a TTL and are keyed by
// path plus the file's size and modification time.
package doccache

import (
	"container/list"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"voxelcraft.ai/schematic/internal/schematic"
)

type Config struct {
	// Capacity 0 disables the cache.
	Capacity int
	// TTL 0 keeps entries until evicted by capacity.
	TTL time.Duration
	Now func() time.Time
}

// Stamp identifies one version of a file.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

func StampOf(fi os.FileInfo) Stamp {
	return Stamp{ModTime: fi.ModTime(), Size: fi.Size()}
}

type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry struct {
	key     string
	stamp   Stamp
	header  schematic.Header
	expires time.Time
}

// Cache is an LRU of headers, safe for concurrent use.
type Cache struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func New(cfg Config) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Capacity < 0 {
		cfg.Capacity = 0
	}
	return &Cache{cfg: cfg, entries: map[string]*list.Element{}, lru: list.New()}
}

// Get returns the header cached for key when it was stored with the same
// stamp and has not expired.
func (c *Cache) Get(key string, stamp Stamp) (schematic.Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return schematic.Header{}, false
	}
	e := elem.Value.(*entry)
	if !e.stamp.ModTime.Equal(stamp.ModTime) || e.stamp.Size != stamp.Size || c.expired(e) {
		c.removeElement(elem)
		c.misses.Add(1)
		return schematic.Header{}, false
	}
	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return e.header, true
}

func (c *Cache) Put(key string, stamp Stamp, h schematic.Header) {
	if c.cfg.Capacity == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if c.cfg.TTL > 0 {
		expires = c.cfg.Now().Add(c.cfg.TTL)
	}
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry)
		e.stamp, e.header, e.expires = stamp, h, expires
		c.lru.MoveToFront(elem)
		return
	}
	for c.lru.Len() >= c.cfg.Capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.evictions.Add(1)
	}
	c.entries[key] = c.lru.PushFront(&entry{key: key, stamp: stamp, header: h, expires: expires})
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Evictions: c.evictions.Load()}
}

// Header returns the header of path, calling load on a miss.
func (c *Cache) Header(path string, load func(string) (schematic.Header, error)) (schematic.Header, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return load(path)
	}
	stamp := StampOf(fi)
	if h, ok := c.Get(path, stamp); ok {
		return h, nil
	}
	h, err := load(path)
	if err != nil {
		return h, err
	}
	c.Put(path, stamp, h)
	return h, nil
}

func (c *Cache) expired(e *entry) bool {
	return !e.expires.IsZero() && !c.cfg.Now().Before(e.expires)
}

func (c *Cache) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(elem)
}
