package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val V
	exp time.Time
}

// Cache is a TTL map. A zero TTL disables it: Put stores nothing.
type Cache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	ttl  time.Duration
	now  func() time.Time
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{data: make(map[K]entry[V]), ttl: ttl, now: time.Now}
}

func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[k]
	if !ok || c.now().After(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Cache[K, V]) Set(k K, v V, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = entry[V]{val: v, exp: exp}
}

// Put stores v for the cache's TTL.
func (c *Cache[K, V]) Put(k K, v V) {
	if c.ttl <= 0 {
		return
	}
	c.Set(k, v, c.now().Add(c.ttl))
}

func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, k)
}

func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
