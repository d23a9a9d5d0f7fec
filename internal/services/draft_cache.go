package services

import (
	"container/list"
	"sync"
	"time"
)

// draftCache is a bounded LRU with idle expiry holding per-user workflow and editor state.
type draftCache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type draftEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func newDraftCache[K comparable, V any](capacity int, ttl time.Duration) *draftCache[K, V] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &draftCache[K, V]{
		entries:  make(map[K]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetOrCreate returns the live entry for key, creating it with create when absent or expired.
// Every access refreshes the expiry.
func (c *draftCache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*draftEntry[K, V])
		if now.Before(entry.expiresAt) {
			entry.expiresAt = now.Add(c.ttl)
			c.order.MoveToFront(elem)
			return entry.value
		}
		c.removeElement(elem)
	}

	value := create()
	c.entries[key] = c.order.PushFront(&draftEntry[K, V]{key: key, value: value, expiresAt: now.Add(c.ttl)})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
	return value
}

func (c *draftCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*draftEntry[K, V])
	now := c.now()
	if !now.Before(entry.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	entry.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	return entry.value, true
}

func (c *draftCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

func (c *draftCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *draftCache[K, V]) removeElement(elem *list.Element) {
	entry := elem.Value.(*draftEntry[K, V])
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
