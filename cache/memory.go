// Package cache stores generated explanations so identical prompts are not
// sent to a model twice. A process-local cache can be layered in front of a
// shared redis cache.
package cache

import (
	"context"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

var (
	_ interfaces.Cache = (*MemoryCache)(nil)
	_ interfaces.Cache = (*RedisCache)(nil)
	_ interfaces.Cache = (*LayeredCache)(nil)
)

// MemoryCache is an in-process expiring cache.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache whose entries live for ttl.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	if val, found := c.cache.Get(key); found {
		s, ok := val.(string)
		return s, ok
	}
	return "", false
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.cache.SetDefault(key, value)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.cache.Flush()
	return nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
