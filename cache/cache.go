// Package cache is a small LRU cache used by the file backend to keep recently
// read node records in memory.
package cache

import (
	"container/list"
	"sync"
)

// DefaultMaxSize is used when a cache is created with a non-positive size.
const DefaultMaxSize = 1024

type item[K comparable, V any] struct {
	key   K
	value V
}

// Cache is an LRU cache. The zero value is not usable; create one with New.
type Cache[K comparable, V any] struct {
	sync.Mutex
	items   map[K]*list.Element
	lru     *list.List
	maxSize int
	hits    uint64
	misses  uint64
}

func New[K comparable, V any](maxSize int) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache[K, V]{
		items:   make(map[K]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// set adds or replaces an entry, evicting the least recently used one when full.
// Callers hold the lock.
func (c *Cache[K, V]) set(key K, value V) {
	if el, ok := c.items[key]; ok {
		c.lru.MoveToFront(el)
		el.Value.(*item[K, V]).value = value
		return
	}
	c.items[key] = c.lru.PushFront(&item[K, V]{key: key, value: value})
	for len(c.items) > c.maxSize {
		c.evictLRU()
	}
}

func (c *Cache[K, V]) evictLRU() {
	el := c.lru.Back()
	if el == nil {
		return
	}
	c.lru.Remove(el)
	delete(c.items, el.Value.(*item[K, V]).key)
}
