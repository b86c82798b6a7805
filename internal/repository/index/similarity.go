// Package index provides the per-tenant similarity and keyword index
// clients. Both are read-only wrappers over the backend store; index
// mutation belongs to the ingestion collaborator.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/rankfuse/internal/db"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
)

// Source identifiers stamped onto candidate lists.
const (
	SourceVector     = "vector"
	SourceKeyword    = "keyword"
	SourceJointSpace = "xmodal_joint"
	SourceAuxText    = "xmodal_text"
)

// SimilarityClient searches a tenant's vector index by nearest neighbor.
type SimilarityClient struct {
	store   db.Searcher
	handles *Registry
}

// NewSimilarityClient creates a similarity index client.
func NewSimilarityClient(store db.Searcher, handles *Registry) *SimilarityClient {
	return &SimilarityClient{store: store, handles: handles}
}

// Search returns at most topK candidates ordered by descending similarity,
// ties broken by document id ascending for reproducibility.
func (c *SimilarityClient) Search(
	ctx context.Context, tenant string, m modality.Modality,
	vector []float32, topK int, filters filter.Expression,
) ([]candidate.Candidate, error) {
	h, err := c.handles.Acquire(ctx, tenant, m)
	if err != nil {
		return nil, err
	}

	if h.Dimensions() > 0 && len(vector) != h.Dimensions() {
		return nil, domain.NewDimensionMismatch(h.Dimensions(), len(vector))
	}

	sr, err := c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: h.IndexName(),
		Filters:   filters,
		Vector:    vector,
		K:         topK,
	})
	if err != nil {
		return nil, backendErr(err)
	}

	return toCandidates(sr, tenant, m, topK)
}

// toCandidates converts raw entries into an ordered candidate slice,
// stripping the tenant-scoped key prefix and enforcing that every hit
// belongs to the requesting tenant.
func toCandidates(
	sr *db.SearchResult, tenant string, m modality.Modality, topK int,
) ([]candidate.Candidate, error) {
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	prefix := fmt.Sprintf("%s%s:%s:", KeyPrefix, tenant, m)
	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if !strings.HasPrefix(e.Key, prefix) {
			// A foreign key in a tenant-scoped index is fatal, never skipped.
			return nil, domain.NewTenantIsolation(tenant, keyTenant(e.Key))
		}
		out = append(out, candidate.New(strings.TrimPrefix(e.Key, prefix), e.Score))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].ID() < out[j].ID()
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// keyTenant extracts the tenant segment from a backend key for diagnostics.
func keyTenant(key string) string {
	rest := strings.TrimPrefix(key, KeyPrefix)
	if i := strings.IndexByte(rest, ':'); i > 0 {
		return rest[:i]
	}
	return rest
}

// backendErr maps store failures onto the engine error taxonomy.
func backendErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case errors.Is(err, db.ErrIndexNotFound):
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
}
