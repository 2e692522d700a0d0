// Package cache keeps the last successful result per resource key for a
// fixed duration. Entries live in a bounded in-memory LRU and, when a disk
// store is attached, are mirrored to leveldb so they survive restarts.
package cache

import (
	"log"
	"sync"
	"time"

	"profilegate/internal/model"
)

type Entry struct {
	Key      string
	Snapshot model.Snapshot
	StoredAt time.Time
}

func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.StoredAt) }

type Option func(*Cache)

// WithMaxEntries bounds the in-memory tier; the least recently used entry is
// dropped first. Zero means unbounded.
func WithMaxEntries(n int) Option { return func(c *Cache) { c.maxEntries = n } }

func WithDisk(d *DiskStore) Option { return func(c *Cache) { c.disk = d } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

type item struct {
	ent  Entry
	prev *item
	next *item
}

type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	disk       *DiskStore

	mu    sync.Mutex
	items map[string]*item
	head  *item
	tail  *item
}

func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:   ttl,
		now:   time.Now,
		items: map[string]*item{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.disk != nil {
		c.loadFromDisk()
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the entry for key while it is younger than the cache duration.
// Expired entries are dropped on the way out.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	if c.expired(it.ent) {
		c.removeLocked(it)
		if c.disk != nil {
			c.disk.Delete(key)
		}
		return Entry{}, false
	}
	c.moveToFront(it)
	return it.ent, true
}

// Put stores snap for key, superseding any previous entry.
func (c *Cache) Put(key string, snap model.Snapshot) Entry {
	ent := Entry{Key: key, Snapshot: snap, StoredAt: c.now()}

	c.mu.Lock()
	if it, ok := c.items[key]; ok {
		it.ent = ent
		c.moveToFront(it)
	} else {
		for c.maxEntries > 0 && len(c.items) >= c.maxEntries && c.tail != nil {
			c.removeLocked(c.tail)
		}
		it := &item{ent: ent}
		c.items[key] = it
		c.addToFront(it)
	}
	c.mu.Unlock()

	if c.disk != nil {
		c.disk.PutAsync(ent)
	}
	return ent
}

// Len counts entries that would still be served.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		if !c.expired(it.ent) {
			n++
		}
	}
	return n
}

func (c *Cache) Close() {
	if c.disk != nil {
		c.disk.Close()
	}
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && e.Age(c.now()) >= c.ttl
}

func (c *Cache) loadFromDisk() {
	ents, err := c.disk.Entries()
	if err != nil {
		log.Printf("cache: load from disk: %v", err)
		return
	}
	loaded := 0
	c.mu.Lock()
	for _, e := range ents {
		if c.expired(e) {
			c.disk.Delete(e.Key)
			continue
		}
		if cur, ok := c.items[e.Key]; ok && !cur.ent.StoredAt.Before(e.StoredAt) {
			continue
		}
		it := &item{ent: e}
		c.items[e.Key] = it
		c.addToFront(it)
		loaded++
	}
	for c.maxEntries > 0 && len(c.items) > c.maxEntries && c.tail != nil {
		c.removeLocked(c.tail)
	}
	c.mu.Unlock()
	log.Printf("cache: restored %d entries from disk", loaded)
}

func (c *Cache) removeLocked(it *item) {
	c.unlink(it)
	delete(c.items, it.ent.Key)
}

func (c *Cache) addToFront(it *item) {
	it.prev = nil
	it.next = c.head
	if c.head != nil {
		c.head.prev = it
	}
	c.head = it
	if c.tail == nil {
		c.tail = it
	}
}

func (c *Cache) unlink(it *item) {
	if it.prev != nil {
		it.prev.next = it.next
	} else {
		c.head = it.next
	}
	if it.next != nil {
		it.next.prev = it.prev
	} else {
		c.tail = it.prev
	}
	it.prev, it.next = nil, nil
}

func (c *Cache) moveToFront(it *item) {
	if c.head == it {
		return
	}
	c.unlink(it)
	c.addToFront(it)
}
