package rankfuse

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
)

// Modality selects which per-tenant index a query searches.
type Modality string

// Supported modalities.
const (
	Text  Modality = "text"
	Image Modality = "image"
	Table Modality = "table"
	Audio Modality = "audio"
	Video Modality = "video"
)

// Document is one fused hit.
type Document struct {
	ID       string
	Score    float64
	Sources  []string
	Modality Modality
}

// Result is the fused answer with its degradation tier.
type Result struct {
	Documents []Document
	Tier      string
	CacheHit  bool
}

// QueryBuilder is a fluent builder for retrieval queries.
type QueryBuilder struct {
	client *Client
	tenant string

	text     string
	vector   []float32
	target   Modality
	filters  []filter.Condition
	topK     int
	timeout  time.Duration
	buildErr error
}

// Text sets the query text.
func (b *QueryBuilder) Text(q string) *QueryBuilder {
	b.text = q
	return b
}

// Vector sets a pre-computed query vector.
func (b *QueryBuilder) Vector(v []float32) *QueryBuilder {
	b.vector = v
	return b
}

// Modality sets the target modality. Defaults to Text.
func (b *QueryBuilder) Modality(m Modality) *QueryBuilder {
	b.target = m
	return b
}

// Where adds an exact-match metadata filter.
func (b *QueryBuilder) Where(key, value string) *QueryBuilder {
	cond, err := filter.NewMatch(key, value)
	if err != nil {
		b.fail(err)
		return b
	}
	b.filters = append(b.filters, cond)
	return b
}

// Range adds an inclusive numeric range filter. Pass nil to leave a
// boundary open.
func (b *QueryBuilder) Range(key string, min, max *float64) *QueryBuilder {
	r, err := filter.NewRangeFilter(min, max)
	if err != nil {
		b.fail(err)
		return b
	}
	cond, err := filter.NewRange(key, r)
	if err != nil {
		b.fail(err)
		return b
	}
	b.filters = append(b.filters, cond)
	return b
}

// TopK sets the number of results to return.
func (b *QueryBuilder) TopK(n int) *QueryBuilder {
	b.topK = n
	return b
}

// Timeout overrides the per-backend deadlines for this query.
func (b *QueryBuilder) Timeout(d time.Duration) *QueryBuilder {
	b.timeout = d
	return b
}

func (b *QueryBuilder) fail(err error) {
	if b.buildErr == nil {
		b.buildErr = err
	}
}

// Do executes the query.
func (b *QueryBuilder) Do(ctx context.Context) (Result, error) {
	if b.buildErr != nil {
		return Result{}, fmt.Errorf("build query: %w", b.buildErr)
	}

	target := modality.Text
	if b.target != "" {
		target = modality.Modality(b.target)
	}

	filters, err := filter.NewExpression(b.filters)
	if err != nil {
		return Result{}, fmt.Errorf("build filters: %w", err)
	}

	q, err := query.New(b.tenant, b.text, b.vector, target, filters, b.topK, b.timeout)
	if err != nil {
		return Result{}, err
	}

	res, err := b.client.svc.Search(ctx, &q)
	if err != nil {
		return Result{}, err
	}

	docs := make([]Document, len(res.Documents()))
	for i, d := range res.Documents() {
		docs[i] = Document{
			ID:       d.ID(),
			Score:    d.Score(),
			Sources:  d.Sources(),
			Modality: Modality(target),
		}
	}
	return Result{
		Documents: docs,
		Tier:      string(res.Tier()),
		CacheHit:  res.CacheHit(),
	}, nil
}
