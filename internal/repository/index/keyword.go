package index

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/rankfuse/internal/db"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
)

// auxTextField holds text extracted from non-text documents (OCR output,
// transcripts) by the ingestion collaborator. The cross-modal proxy path
// scores against it.
const auxTextField = "__aux_text"

// KeywordClient searches a tenant's inverted index with BM25 ranking.
type KeywordClient struct {
	store   db.Searcher
	handles *Registry
}

// NewKeywordClient creates a keyword index client.
func NewKeywordClient(store db.Searcher, handles *Registry) *KeywordClient {
	return &KeywordClient{store: store, handles: handles}
}

// Search returns candidates ranked by BM25 relevance. No matching terms is
// an empty result, not an error.
func (c *KeywordClient) Search(
	ctx context.Context, tenant string, m modality.Modality,
	text string, topK int, filters filter.Expression,
) ([]candidate.Candidate, error) {
	return c.search(ctx, tenant, m, text, "", topK, filters)
}

// SearchAuxText ranks documents of modality m by BM25 over their extracted
// auxiliary text instead of the primary content field.
func (c *KeywordClient) SearchAuxText(
	ctx context.Context, tenant string, m modality.Modality,
	text string, topK int, filters filter.Expression,
) ([]candidate.Candidate, error) {
	return c.search(ctx, tenant, m, text, auxTextField, topK, filters)
}

func (c *KeywordClient) search(
	ctx context.Context, tenant string, m modality.Modality,
	text, field string, topK int, filters filter.Expression,
) ([]candidate.Candidate, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}

	h, err := c.handles.Acquire(ctx, tenant, m)
	if err != nil {
		return nil, err
	}

	sr, err := c.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: h.IndexName(),
		Query:     text,
		Field:     field,
		Filters:   filters,
		TopK:      topK,
	})
	if err != nil {
		return nil, backendErr(err)
	}

	return toCandidates(sr, tenant, m, topK)
}
