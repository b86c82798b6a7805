// Package health aggregates component probes into one report. A dead
// embedding gateway degrades the engine (keyword and pure-vector queries
// still work) rather than failing it.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; degraded-tier answers are still possible.
	Degraded Status = "degraded"
	// Unhealthy indicates the index store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component probe outcome.
type CheckResult string

const (
	// CheckOK indicates a passing probe.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing probe.
	CheckError CheckResult = "error"
)

// Report aggregates probe results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health probes.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil when the deployment only
// serves pre-vectorized queries.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check probes every component. The index store is load-bearing: without it
// no backend family can answer, so its failure is Unhealthy. The embedding
// gateway only blocks text vectorization, so its failure is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := s.store.Ping(ctx) == nil
	if storeOK {
		checks["index_store"] = CheckOK
	} else {
		checks["index_store"] = CheckError
	}

	embeddingOK := true
	if s.embedding != nil {
		embeddingOK = s.embedding.HealthCheck(ctx) == nil
		if embeddingOK {
			checks["embedding_gateway"] = CheckOK
		} else {
			checks["embedding_gateway"] = CheckError
		}
	}

	switch {
	case !storeOK:
		return Report{Status: Unhealthy, Checks: checks}
	case !embeddingOK:
		return Report{Status: Degraded, Checks: checks}
	default:
		return Report{Status: Healthy, Checks: checks}
	}
}
