package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](time.Minute)
	c.now = func() time.Time { return now }

	c.Put("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheDeleteAndPurge(t *testing.T) {
	c := New[string, string](time.Hour)
	c.Put("a", "x")
	c.Put("b", "y")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCacheZeroTTLStoresNothing(t *testing.T) {
	c := New[string, int](0)
	c.Put("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
}
