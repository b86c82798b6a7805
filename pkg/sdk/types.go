package sdk

// QueryRequest is the POST /v1/query body.
type QueryRequest struct {
	TenantID    string            `json:"tenant_id"`
	QueryText   string            `json:"query_text,omitempty"`
	QueryVector []float32         `json:"query_vector,omitempty"`
	Modality    string            `json:"modality,omitempty"`
	Filters     []FilterCondition `json:"filters,omitempty"`
	TopK        int               `json:"top_k,omitempty"`
	TimeoutMS   int               `json:"timeout_ms,omitempty"`
}

// FilterCondition is one metadata predicate: exact match or numeric range.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match string       `json:"match,omitempty"`
	Range *RangeFilter `json:"range,omitempty"`
}

// RangeFilter is an inclusive numeric range. Nil boundaries are open.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// QueryResponse is the fused answer.
type QueryResponse struct {
	Documents []Document `json:"documents"`
	Tier      string     `json:"tier"`
	CacheHit  bool       `json:"cache_hit"`
}

// Degradation tiers.
const (
	TierFull        = "full"
	TierVectorOnly  = "vector_only"
	TierKeywordOnly = "keyword_only"
)

// Degraded reports whether the response was produced without all backends.
func (r QueryResponse) Degraded() bool { return r.Tier != TierFull }

// Document is one fused hit.
type Document struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Sources  []string `json:"sources"`
	Modality string   `json:"modality"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
