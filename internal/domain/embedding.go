package domain

import "context"

// EmbeddingResult is a vector produced by the embedding gateway plus usage counters.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes content into an embedding space. The engine never
// computes embeddings itself; this is the gateway collaborator contract.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by collaborators that can verify their own availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
