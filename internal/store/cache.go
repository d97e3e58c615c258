package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache holds decompressed file bodies keyed by site and digest.
type Cache interface {
	Get(key string) ([]byte, bool)
	Add(key string, value []byte)
	Remove(key string)
	Purge()
}

// LRUCache is a bounded least-recently-used Cache.
type LRUCache struct {
	c *lru.Cache[string, []byte]
}

// NewLRUCache creates a cache holding at most size bodies. A size below
// one disables caching.
func NewLRUCache(size int) Cache {
	if size < 1 {
		return nopCache{}
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nopCache{}
	}
	return &LRUCache{c: c}
}

func (c *LRUCache) Get(key string) ([]byte, bool) { return c.c.Get(key) }
func (c *LRUCache) Add(key string, value []byte)  { c.c.Add(key, value) }
func (c *LRUCache) Remove(key string)             { c.c.Remove(key) }
func (c *LRUCache) Purge()                        { c.c.Purge() }

type nopCache struct{}

func (nopCache) Get(string) ([]byte, bool) { return nil, false }
func (nopCache) Add(string, []byte)        {}
func (nopCache) Remove(string)             {}
func (nopCache) Purge()                    {}

func cacheKey(siteName, digest string) string {
	return siteName + "\x00" + digest
}
