package cache

import "container/list"

func (c *Cache[K, V]) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.items)
}

func (c *Cache[K, V]) MaxSize() int {
	c.Lock()
	defer c.Unlock()

	return c.maxSize
}

func (c *Cache[K, V]) Clear() {
	c.Lock()
	defer c.Unlock()

	c.items = make(map[K]*list.Element)
	c.lru = list.New()
}

// Stats returns the hit and miss counters since the cache was created.
func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	c.Lock()
	defer c.Unlock()

	return c.hits, c.misses
}
