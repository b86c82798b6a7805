// Package fallback orchestrates the per-query backend fan-out: concurrent
// calls under independent deadlines, tier selection over whatever subset
// survives, and discard of late responses.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/tier"
	"github.com/kailas-cloud/rankfuse/internal/logger"
	"github.com/kailas-cloud/rankfuse/internal/metrics"
)

// Kind groups sources into the two backend families tier selection reasons
// about. The cross-modal joint path is vector-family; the auxiliary-text
// path is keyword-family.
type Kind int

// Backend families.
const (
	KindVector Kind = iota
	KindKeyword
)

// Source is one independently cancellable backend call.
type Source struct {
	Name    string
	Kind    Kind
	Weight  float64
	Timeout time.Duration
	Run     func(ctx context.Context) ([]candidate.Candidate, error)
}

// settleGrace bounds how long the controller waits past the slowest source
// deadline for goroutines to report in.
const settleGrace = 50 * time.Millisecond

// Controller runs the fan-out and decides the degradation tier.
type Controller struct{}

// New creates a fallback controller.
func New() *Controller {
	return &Controller{}
}

type outcome struct {
	source Source
	items  []candidate.Candidate
	err    error
}

// Run issues every source concurrently, each under its own deadline, and
// waits until all settle or the slowest allowed timeout elapses. A source
// that has not answered by then is failed for tier selection; its response,
// if it ever arrives, is discarded. Returns the surviving candidate lists
// and the tier they represent, or ErrAllSourcesFailed when nothing survived.
//
// A tenant isolation violation from any source halts the whole query
// immediately; it is never degraded around.
func (c *Controller) Run(
	ctx context.Context, sources []Source,
) ([]candidate.List, tier.Tier, error) {
	if len(sources) == 0 {
		return nil, "", fmt.Errorf("%w: no sources selected", domain.ErrAllSourcesFailed)
	}

	log := logger.FromContext(ctx)

	// Buffered so late goroutines never block after the controller returns.
	results := make(chan outcome, len(sources))

	var slowest time.Duration
	for _, s := range sources {
		if s.Timeout > slowest {
			slowest = s.Timeout
		}

		go func(s Source) {
			callCtx := ctx
			var cancel context.CancelFunc
			if s.Timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
				defer cancel()
			}

			start := time.Now()
			items, err := s.Run(callCtx)
			metrics.BackendRequestDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
			metrics.BackendRequestsTotal.WithLabelValues(s.Name, statusLabel(err)).Inc()

			results <- outcome{source: s, items: items, err: err}
		}(s)
	}

	deadline := time.NewTimer(slowest + settleGrace)
	defer deadline.Stop()

	requested := map[Kind]bool{}
	for _, s := range sources {
		requested[s.Kind] = true
	}

	var (
		lists    []candidate.List
		okKinds  = map[Kind]bool{}
		failures []error
	)

	settled := 0
collect:
	for settled < len(sources) {
		select {
		case res := <-results:
			settled++
			if res.err != nil {
				if errors.Is(res.err, domain.ErrTenantIsolation) {
					return nil, "", res.err
				}
				log.Warn("backend source failed",
					zap.String("source", res.source.Name),
					zap.Error(res.err),
				)
				failures = append(failures, fmt.Errorf("%s: %w", res.source.Name, res.err))
				continue
			}
			okKinds[res.source.Kind] = true
			lists = append(lists, candidate.NewList(res.source.Name, res.source.Weight, res.items))
		case <-deadline.C:
			// Unsettled sources are failed for this decision; their late
			// results land in the buffered channel and are never read.
			for range sources[settled:] {
				failures = append(failures, domain.ErrTimeout)
			}
			break collect
		case <-ctx.Done():
			return nil, "", fmt.Errorf("query cancelled: %w", ctx.Err())
		}
	}

	if len(lists) == 0 {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrAllSourcesFailed, errors.Join(failures...))
	}

	return lists, selectTier(requested, okKinds), nil
}

// selectTier maps the surviving backend families onto a degradation tier,
// relative to the families the query actually requested. Every requested
// family answering (even partially, with cross-modal dual sources) is full
// service; a single surviving family is the matching degraded tier.
func selectTier(requested, okKinds map[Kind]bool) tier.Tier {
	full := true
	for k := range requested {
		if !okKinds[k] {
			full = false
			break
		}
	}
	switch {
	case full:
		return tier.Full
	case okKinds[KindVector]:
		return tier.VectorOnly
	default:
		return tier.KeywordOnly
	}
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
