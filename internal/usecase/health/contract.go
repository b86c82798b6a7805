package health

import "context"

// StorePinger checks index store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding gateway availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
