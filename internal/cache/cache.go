// Package cache is the short-TTL result cache. Keys are tenant-scoped by
// construction and carry a per-tenant generation, so an ingestion-side
// invalidation makes every older entry for that tenant unreachable without
// scanning; the LRU bound reclaims them.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
	"github.com/kailas-cloud/rankfuse/internal/metrics"
)

// Defaults.
const (
	DefaultTTL         = 5 * time.Minute
	DefaultDegradedTTL = 1 * time.Minute
	DefaultMaxEntries  = 4096
)

type entry struct {
	tenant    string
	result    fused.Result
	expiresAt time.Time
}

// Cache is a concurrency-safe in-process result cache with per-entry TTL.
// Entries produced under a degraded tier get the shorter TTL: they are
// lower-confidence and should be retried against a healthy backend sooner.
type Cache struct {
	entries     *lru.Cache[string, entry]
	ttl         time.Duration
	degradedTTL time.Duration

	mu   sync.Mutex
	gens map[string]uint64

	now func() time.Time
}

// New creates a result cache. Non-positive arguments take the defaults.
func New(maxEntries int, ttl, degradedTTL time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if degradedTTL <= 0 {
		degradedTTL = DefaultDegradedTTL
	}

	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &Cache{
		entries:     entries,
		ttl:         ttl,
		degradedTTL: degradedTTL,
		gens:        make(map[string]uint64),
		now:         time.Now,
	}, nil
}

// Get returns the cached result for a tenant's query fingerprint, if fresh.
// A stored entry whose tenant does not match the requester is a fatal
// isolation violation, never a plain miss.
func (c *Cache) Get(tenant string, fingerprint uint64) (fused.Result, bool, error) {
	e, ok := c.entries.Get(c.key(tenant, fingerprint))
	if !ok {
		metrics.CacheTotal.WithLabelValues("miss").Inc()
		return fused.Result{}, false, nil
	}

	if e.tenant != tenant {
		return fused.Result{}, false, domain.NewTenantIsolation(tenant, e.tenant)
	}

	if c.now().After(e.expiresAt) {
		c.entries.Remove(c.key(tenant, fingerprint))
		metrics.CacheTotal.WithLabelValues("miss").Inc()
		return fused.Result{}, false, nil
	}

	metrics.CacheTotal.WithLabelValues("hit").Inc()
	return e.result.AsCacheHit(), true, nil
}

// Put stores a fused result under the tenant's current generation.
func (c *Cache) Put(tenant string, fingerprint uint64, result fused.Result) {
	ttl := c.ttl
	if result.Tier().Degraded() {
		ttl = c.degradedTTL
	}

	c.entries.Add(c.key(tenant, fingerprint), entry{
		tenant:    tenant,
		result:    result,
		expiresAt: c.now().Add(ttl),
	})
}

// Invalidate drops every cached result for a tenant by bumping its
// generation. Called by the ingestion collaborator when the tenant's
// documents change materially.
func (c *Cache) Invalidate(tenant string) {
	c.mu.Lock()
	c.gens[tenant]++
	c.mu.Unlock()
}

func (c *Cache) key(tenant string, fingerprint uint64) string {
	c.mu.Lock()
	gen := c.gens[tenant]
	c.mu.Unlock()
	return fmt.Sprintf("%s\x00%d\x00%016x", tenant, gen, fingerprint)
}
