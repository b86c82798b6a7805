// Package db defines the backend store contract for the retrieval engine.
// The engine only reads: index creation and document writes are owned by the
// ingestion collaborator.
package db

import (
	"context"
	"time"
)

// Store is the backend facade. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	Searcher
	IndexChecker
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker inspects index availability without mutating anything.
type IndexChecker interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher provides read-only search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
}
