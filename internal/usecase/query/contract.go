package query

import (
	"context"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/tier"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
)

// SimilaritySearcher is the vector index client contract.
type SimilaritySearcher interface {
	Search(
		ctx context.Context, tenant string, m modality.Modality,
		vector []float32, topK int, filters filter.Expression,
	) ([]candidate.Candidate, error)
}

// KeywordSearcher is the keyword index client contract.
type KeywordSearcher interface {
	Search(
		ctx context.Context, tenant string, m modality.Modality,
		text string, topK int, filters filter.Expression,
	) ([]candidate.Candidate, error)
}

// CrossModal builds the dual-path sources for text queries against
// non-text targets.
type CrossModal interface {
	Supported(source, target modality.Modality) bool
	Sources(
		q *query.Query, weights domain.Weights,
		vectorTimeout, keywordTimeout time.Duration,
	) ([]fallback.Source, error)
}

// ResultCache is the tenant-scoped result cache contract.
type ResultCache interface {
	Get(tenant string, fingerprint uint64) (fused.Result, bool, error)
	Put(tenant string, fingerprint uint64, result fused.Result)
	Invalidate(tenant string)
}

// Runner executes the backend fan-out and selects the degradation tier.
type Runner interface {
	Run(ctx context.Context, sources []fallback.Source) ([]candidate.List, tier.Tier, error)
}

// TenantSettings resolves per-tenant fusion configuration.
type TenantSettings interface {
	Weights(tenant string) domain.Weights
}

// Reranker refines a fused ranking. Optional; fusion order stands when absent.
type Reranker interface {
	Rerank(ctx context.Context, q *query.Query, docs []fused.Document) ([]fused.Document, error)
}
