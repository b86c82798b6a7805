package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/rankfuse/internal/db"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
)

// KeyPrefix namespaces every backend key and index the engine touches.
const KeyPrefix = "rf:"

// Handle is a live reference to one tenant's index for one modality. Handles
// are created lazily on first query, live for the process lifetime, and are
// never shared across tenants.
type Handle struct {
	tenant     string
	modality   modality.Modality
	indexName  string
	dimensions int
}

// IndexName returns the backend FT index name.
func (h *Handle) IndexName() string { return h.indexName }

// Dimensions returns the tenant's configured embedding dimension.
func (h *Handle) Dimensions() int { return h.dimensions }

// guard verifies the handle belongs to the requesting tenant. A mismatch is
// a programming defect and must halt the request.
func (h *Handle) guard(tenant string) error {
	if h.tenant != tenant {
		return domain.NewTenantIsolation(tenant, h.tenant)
	}
	return nil
}

// DimensionResolver supplies the configured embedding dimension per tenant.
type DimensionResolver interface {
	Dimensions(tenant string) int
}

type handleKey struct {
	tenant   string
	modality modality.Modality
}

// Registry lazily creates and caches per-(tenant, modality) index handles
// with double-checked locking, so concurrent first access never builds a
// duplicate handle.
type Registry struct {
	store db.IndexChecker
	dims  DimensionResolver

	mu      sync.RWMutex
	handles map[handleKey]*Handle
}

// NewRegistry creates a handle registry.
func NewRegistry(store db.IndexChecker, dims DimensionResolver) *Registry {
	return &Registry{
		store:   store,
		dims:    dims,
		handles: make(map[handleKey]*Handle),
	}
}

// IndexNameFor returns the tenant-scoped index name for a modality. The
// tenant id is always part of the name; there is no unscoped form.
func IndexNameFor(tenant string, m modality.Modality) string {
	return fmt.Sprintf("%s%s:%s:idx", KeyPrefix, tenant, m)
}

// Acquire returns the handle for a tenant/modality pair, creating it on
// first use. Returns ErrIndexUnavailable when the backend has no such index.
func (r *Registry) Acquire(ctx context.Context, tenant string, m modality.Modality) (*Handle, error) {
	key := handleKey{tenant: tenant, modality: m}

	r.mu.RLock()
	h, ok := r.handles[key]
	r.mu.RUnlock()
	if ok {
		if err := h.guard(tenant); err != nil {
			return nil, err
		}
		return h, nil
	}

	name := IndexNameFor(tenant, m)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: index %s not built", domain.ErrIndexUnavailable, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have won the race.
	if h, ok := r.handles[key]; ok {
		return h, nil
	}

	h = &Handle{
		tenant:     tenant,
		modality:   m,
		indexName:  name,
		dimensions: r.dims.Dimensions(tenant),
	}
	r.handles[key] = h
	return h, nil
}
