package database

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/volontulo/go-volontulo/internal/models"
)

// OrganizationCache provides LRU caching for organization rows.
// Offers embed their organization, so listings hit this on every row.
type OrganizationCache struct {
	lru     *expirable.LRU[int64, models.Organization]
	maxSize int
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewOrganizationCache creates a new organization cache; size <= 0 means unbounded
func NewOrganizationCache(maxSize int, ttl time.Duration) *OrganizationCache {
	return &OrganizationCache{
		lru:     expirable.NewLRU[int64, models.Organization](maxSize, nil, ttl),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns a copy of the cached organization
func (oc *OrganizationCache) Get(id int64) (*models.Organization, bool) {
	org, ok := oc.lru.Get(id)
	if !ok {
		oc.misses.Add(1)
		return nil, false
	}
	oc.hits.Add(1)
	return &org, true
}

// Put stores a copy of the organization
func (oc *OrganizationCache) Put(org *models.Organization) {
	if org == nil {
		return
	}
	oc.lru.Add(org.ID, *org)
}

// Remove drops one organization from the cache
func (oc *OrganizationCache) Remove(id int64) {
	oc.lru.Remove(id)
}

// Purge empties the cache
func (oc *OrganizationCache) Purge() {
	oc.lru.Purge()
}

// Stats returns cache statistics
func (oc *OrganizationCache) Stats() map[string]interface{} {
	hits, misses := oc.hits.Load(), oc.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"size":     oc.lru.Len(),
		"max_size": oc.maxSize,
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
		"max_age":  oc.ttl.String(),
	}
}
