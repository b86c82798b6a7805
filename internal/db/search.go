package db

import "github.com/kailas-cloud/rankfuse/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Filters   filter.Expression
	Vector    []float32
	K         int
}

// TextQuery is the input for BM25 text search. Field selects which TEXT
// field is scored (defaults to the primary content field).
type TextQuery struct {
	IndexName string
	Query     string
	Field     string
	Filters   filter.Expression
	TopK      int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key   string
	Score float64
}
