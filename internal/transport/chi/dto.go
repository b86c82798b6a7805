package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
)

// QueryRequest is the POST /v1/query body.
type QueryRequest struct {
	TenantID    string             `json:"tenant_id"`
	QueryText   *string            `json:"query_text,omitempty"`
	QueryVector *[]float32         `json:"query_vector,omitempty"`
	Modality    *string            `json:"modality,omitempty"`
	Filters     *[]FilterCondition `json:"filters,omitempty"`
	TopK        *int               `json:"top_k,omitempty"`
	TimeoutMS   *int               `json:"timeout_ms,omitempty"`
}

// FilterCondition is one metadata predicate: exact match or numeric range.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match *string      `json:"match,omitempty"`
	Range *RangeFilter `json:"range,omitempty"`
}

// RangeFilter is an inclusive numeric range.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// QueryResponse is the POST /v1/query response body.
type QueryResponse struct {
	Documents []DocumentItem `json:"documents"`
	Tier      string         `json:"tier"`
	CacheHit  bool           `json:"cache_hit"`
}

// DocumentItem is one fused hit.
type DocumentItem struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Sources  []string `json:"sources"`
	Modality string   `json:"modality"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Error response codes.
const (
	CodeBadRequest              = "bad_request"
	CodeInvalidQuery            = "invalid_query"
	CodeUnsupportedModalityPair = "unsupported_modality_pair"
	CodeDimensionMismatch       = "dimension_mismatch"
	CodeAllSourcesFailed        = "all_sources_failed"
	CodeEmbeddingProviderError  = "embedding_provider_error"
	CodeTimeout                 = "timeout"
	CodeUnauthorized            = "unauthorized"
	CodeInternalError           = "internal_error"
)

func queryFromRequest(req QueryRequest) (query.Query, error) {
	text := ""
	if req.QueryText != nil {
		text = *req.QueryText
	}
	var vector []float32
	if req.QueryVector != nil {
		vector = *req.QueryVector
	}

	target := modality.Text
	if req.Modality != nil {
		target = modality.Modality(*req.Modality)
	}

	filters, err := filtersFromRequest(req.Filters)
	if err != nil {
		return query.Query{}, err
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
	}

	var timeout time.Duration
	if req.TimeoutMS != nil {
		timeout = time.Duration(*req.TimeoutMS) * time.Millisecond
	}

	return query.New(req.TenantID, text, vector, target, filters, topK, timeout)
}

func filtersFromRequest(fs *[]FilterCondition) (filter.Expression, error) {
	if fs == nil || len(*fs) == 0 {
		return filter.Expression{}, nil
	}

	conditions := make([]filter.Condition, 0, len(*fs))
	for _, f := range *fs {
		cond, err := conditionFromRequest(f)
		if err != nil {
			return filter.Expression{}, err
		}
		conditions = append(conditions, cond)
	}

	expr, err := filter.NewExpression(conditions)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: filters: %w", domain.ErrInvalidQuery, err)
	}
	return expr, nil
}

func conditionFromRequest(f FilterCondition) (filter.Condition, error) {
	if f.Match != nil && f.Range != nil {
		return filter.Condition{},
			fmt.Errorf("%w: filter condition for %q must have match or range, not both", domain.ErrInvalidQuery, f.Key)
	}
	if f.Match != nil {
		cond, err := filter.NewMatch(f.Key, *f.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("%w: match filter: %w", domain.ErrInvalidQuery, err)
		}
		return cond, nil
	}
	if f.Range != nil {
		r, err := filter.NewRangeFilter(f.Range.Min, f.Range.Max)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("%w: range filter: %w", domain.ErrInvalidQuery, err)
		}
		cond, err := filter.NewRange(f.Key, r)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("%w: range condition: %w", domain.ErrInvalidQuery, err)
		}
		return cond, nil
	}
	return filter.Condition{},
		fmt.Errorf("%w: filter condition must have either match or range", domain.ErrInvalidQuery)
}

func resultToResponse(res fused.Result, m modality.Modality) QueryResponse {
	items := make([]DocumentItem, len(res.Documents()))
	for i, d := range res.Documents() {
		items[i] = DocumentItem{
			ID:       d.ID(),
			Score:    d.Score(),
			Sources:  d.Sources(),
			Modality: string(m),
		}
	}
	return QueryResponse{
		Documents: items,
		Tier:      string(res.Tier()),
		CacheHit:  res.CacheHit(),
	}
}
