// Package crossmodal maps a query from one modality into another's
// embedding space so a text query can retrieve images. Matching always runs
// two paths, the shared joint embedding space and the auxiliary text the
// ingestion collaborator extracted from the target documents (OCR,
// transcripts), and hands both to fusion as separate candidate lists.
package crossmodal

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
)

// Matcher builds the dual-path cross-modal sources for a query.
type Matcher struct {
	joint      domain.Embedder
	similarity *repoindex.SimilarityClient
	keyword    *repoindex.KeywordClient
}

// New creates a cross-modal matcher. joint is the embedding gateway model
// for the shared text/image space.
func New(joint domain.Embedder, similarity *repoindex.SimilarityClient, keyword *repoindex.KeywordClient) *Matcher {
	return &Matcher{joint: joint, similarity: similarity, keyword: keyword}
}

// Supported reports whether the matcher can translate a text query into the
// target modality's space.
func (m *Matcher) Supported(source, target modality.Modality) bool {
	return source == modality.Text && target == modality.Image
}

// Translate maps query text into the target modality's joint embedding space.
func (m *Matcher) Translate(
	ctx context.Context, text string, source, target modality.Modality,
) ([]float32, error) {
	if !m.Supported(source, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrUnsupportedModalityPair, source, target)
	}
	if m.joint == nil {
		return nil, fmt.Errorf("no joint embedding gateway configured: %w", domain.ErrEmbeddingProviderError)
	}

	res, err := m.joint.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("joint embedding: %w", err)
	}
	return res.Embedding, nil
}

// Sources returns the two cross-modal fallback sources for a text query
// against a non-text target. The joint-space path counts as vector-family,
// the auxiliary-text path as keyword-family, so tier selection stays honest
// when one of them dies.
func (m *Matcher) Sources(
	q *query.Query, weights domain.Weights, vectorTimeout, keywordTimeout time.Duration,
) ([]fallback.Source, error) {
	if !m.Supported(modality.Text, q.Target()) {
		return nil, fmt.Errorf("%w: text -> %s", domain.ErrUnsupportedModalityPair, q.Target())
	}

	jointSource := fallback.Source{
		Name:    repoindex.SourceJointSpace,
		Kind:    fallback.KindVector,
		Weight:  weights.Joint,
		Timeout: vectorTimeout,
		Run: func(ctx context.Context) ([]candidate.Candidate, error) {
			// Translation runs under the source deadline: a slow gateway
			// fails this path, it never stalls the whole query.
			vec, err := m.Translate(ctx, q.Text(), modality.Text, q.Target())
			if err != nil {
				return nil, err
			}
			return m.similarity.Search(ctx, q.Tenant(), q.Target(), vec, q.TopK(), q.Filters())
		},
	}

	proxySource := fallback.Source{
		Name:    repoindex.SourceAuxText,
		Kind:    fallback.KindKeyword,
		Weight:  weights.Proxy,
		Timeout: keywordTimeout,
		Run: func(ctx context.Context) ([]candidate.Candidate, error) {
			return m.keyword.SearchAuxText(ctx, q.Tenant(), q.Target(), q.Text(), q.TopK(), q.Filters())
		},
	}

	return []fallback.Source{jointSource, proxySource}, nil
}
