package store

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheMetrics is a snapshot of match cache effectiveness.
type CacheMetrics struct {
	Hits          int64
	Misses        int64
	Invalidations int64
}

// cachedMatch is an LRU entry: either the matched policy id, or a
// remembered negative result so repeated misses skip the table scans.
type cachedMatch struct {
	policyID int64
	negative bool
}

// policyCache fronts policy matching with a bounded LRU keyed by the
// match key. Any policy write purges it before the write is
// acknowledged — a stale entry must never outlive the row it points at.
type policyCache struct {
	lru           *lru.Cache[string, cachedMatch]
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

func newPolicyCache(size int) (*policyCache, error) {
	c, err := lru.New[string, cachedMatch](size)
	if err != nil {
		return nil, err
	}
	return &policyCache{lru: c}, nil
}

func (c *policyCache) get(key string) (cachedMatch, bool) {
	if key == "" {
		return cachedMatch{}, false
	}
	entry, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

func (c *policyCache) put(key string, entry cachedMatch) {
	if key == "" {
		return
	}
	c.lru.Add(key, entry)
}

// purge drops every entry. Called before any policy mutation commits.
func (c *policyCache) purge() {
	c.invalidations.Add(1)
	c.lru.Purge()
}

func (c *policyCache) metrics() CacheMetrics {
	return CacheMetrics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}
