package cache

// Update replaces the value for key only if key is already cached. It reports
// whether an entry was replaced.
func (c *Cache[K, V]) Update(key K, value V) bool {
	c.Lock()
	defer c.Unlock()

	if _, ok := c.items[key]; !ok {
		return false
	}
	c.set(key, value)
	return true
}
