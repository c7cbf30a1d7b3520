package pipeline

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 1024

// identityCache memoizes handle-to-identifier lookups for a short TTL.
// Relations are never cached; only the identity step consults it. A nil
// cache is valid and always misses.
type identityCache struct {
	lru *expirable.LRU[string, string]
}

func newIdentityCache(size int, ttl time.Duration) *identityCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &identityCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *identityCache) get(handle string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(handle)
}

func (c *identityCache) put(handle, id string) {
	if c == nil {
		return
	}
	c.lru.Add(handle, id)
}
