package cache

// Put adds or replaces the value for key.
func (c *Cache[K, V]) Put(key K, value V) {
	c.Lock()
	defer c.Unlock()

	c.set(key, value)
}
