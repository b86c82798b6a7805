package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
)

// Query parameter limits.
const (
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 1000
)

// Query is a validated, immutable retrieval request. Exactly one of text or
// vector carries the query; the target modality selects which per-tenant
// index is searched.
type Query struct {
	tenant  string
	text    string
	vector  []float32
	target  modality.Modality
	filters filter.Expression
	topK    int
	timeout time.Duration
}

// New validates and normalizes query parameters.
// Defaults: topK=10, clamped to 1000. timeout=0 means per-backend defaults apply.
func New(
	tenant, text string,
	vector []float32,
	target modality.Modality,
	filters filter.Expression,
	topK int,
	timeout time.Duration,
) (Query, error) {
	if tenant == "" {
		return Query{}, fmt.Errorf("%w: tenant_id is required", domain.ErrInvalidQuery)
	}
	if text == "" && len(vector) == 0 {
		return Query{}, fmt.Errorf("%w: query_text or query_vector is required", domain.ErrInvalidQuery)
	}
	if text != "" && len(vector) > 0 {
		return Query{}, fmt.Errorf("%w: query_text and query_vector are mutually exclusive", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if !target.IsValid() {
		return Query{}, fmt.Errorf("%w: invalid modality %q", domain.ErrInvalidQuery, target)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if timeout < 0 {
		return Query{}, fmt.Errorf("%w: negative timeout", domain.ErrInvalidQuery)
	}

	return Query{
		tenant:  tenant,
		text:    text,
		vector:  vector,
		target:  target,
		filters: filters,
		topK:    topK,
		timeout: timeout,
	}, nil
}

// Tenant returns the owning tenant identifier.
func (q *Query) Tenant() string { return q.tenant }

// Text returns the raw query text (empty for vector queries).
func (q *Query) Text() string { return q.text }

// Vector returns the query vector (nil for text queries). Callers must not mutate it.
func (q *Query) Vector() []float32 { return q.vector }

// HasVector reports whether the query carries a pre-computed vector.
func (q *Query) HasVector() bool { return len(q.vector) > 0 }

// Target returns the modality being searched.
func (q *Query) Target() modality.Modality { return q.target }

// Filters returns the metadata pre-filter expression.
func (q *Query) Filters() filter.Expression { return q.filters }

// TopK returns the number of candidates to retrieve per source.
func (q *Query) TopK() int { return q.topK }

// Timeout returns the per-backend timeout override (0 = use defaults).
func (q *Query) Timeout() time.Duration { return q.timeout }

// NormalizedText returns the query text lowered with whitespace collapsed,
// so trivially different spellings of the same query share a cache entry.
func (q *Query) NormalizedText() string {
	return strings.Join(strings.Fields(strings.ToLower(q.text)), " ")
}
