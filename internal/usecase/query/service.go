// Package query is the engine entry point: it sequences fingerprint, cache
// lookup, fallback-controlled fan-out, fusion, optional rerank, and cache
// write for every retrieval request.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/rankfuse/internal/cache"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	"github.com/kailas-cloud/rankfuse/internal/fusion"
	"github.com/kailas-cloud/rankfuse/internal/logger"
	"github.com/kailas-cloud/rankfuse/internal/metrics"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
)

// Default per-backend timeouts. Vector and keyword backends have different
// latency profiles, so the budgets are independent.
const (
	DefaultVectorTimeout  = 500 * time.Millisecond
	DefaultKeywordTimeout = 300 * time.Millisecond
)

// Service orchestrates hybrid retrieval.
type Service struct {
	similarity SimilaritySearcher
	keyword    KeywordSearcher
	xmodal     CrossModal
	embed      domain.Embedder
	cache      ResultCache
	runner     Runner
	settings   TenantSettings
	reranker   Reranker

	vectorTimeout  time.Duration
	keywordTimeout time.Duration
	rrfK           int

	group singleflight.Group
}

// New creates the query orchestrator.
func New(
	similarity SimilaritySearcher,
	keyword KeywordSearcher,
	xmodal CrossModal,
	embed domain.Embedder,
	resultCache ResultCache,
	runner Runner,
	settings TenantSettings,
) *Service {
	return &Service{
		similarity:     similarity,
		keyword:        keyword,
		xmodal:         xmodal,
		embed:          embed,
		cache:          resultCache,
		runner:         runner,
		settings:       settings,
		vectorTimeout:  DefaultVectorTimeout,
		keywordTimeout: DefaultKeywordTimeout,
		rrfK:           fusion.DefaultK,
	}
}

// WithTimeouts overrides the default per-backend timeouts.
func (s *Service) WithTimeouts(vector, keyword time.Duration) *Service {
	if vector > 0 {
		s.vectorTimeout = vector
	}
	if keyword > 0 {
		s.keywordTimeout = keyword
	}
	return s
}

// WithRRFConstant overrides the RRF damping constant.
func (s *Service) WithRRFConstant(k int) *Service {
	if k > 0 {
		s.rrfK = k
	}
	return s
}

// WithReranker installs an optional post-fusion reranker.
func (s *Service) WithReranker(r Reranker) *Service {
	s.reranker = r
	return s
}

// Search answers one retrieval query. The result carries an honest
// degradation tier; total backend failure surfaces as ErrAllSourcesFailed,
// never as an empty ranked list.
func (s *Service) Search(ctx context.Context, q *query.Query) (fused.Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With(
		zap.String("tenant", q.Tenant()),
		zap.String("modality", string(q.Target())),
	)

	fp := cache.Fingerprint(q)

	if res, ok, err := s.cache.Get(q.Tenant(), fp); err != nil {
		// Isolation violations halt the request; degrading here could leak
		// another tenant's documents.
		log.Error("result cache isolation violation", zap.Error(err))
		return fused.Result{}, err
	} else if ok {
		metrics.QueriesTotal.WithLabelValues(string(res.Tier()), "cache_hit").Inc()
		return res, nil
	}

	// Caller errors surface before any backend is touched.
	sources, err := s.assembleSources(q)
	if err != nil {
		return fused.Result{}, err
	}

	// Concurrent identical queries share one fan-out.
	key := fmt.Sprintf("%s\x00%016x", q.Tenant(), fp)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.execute(ctx, q, fp, sources)
	})
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("none", "failed").Inc()
		return fused.Result{}, err
	}

	res := v.(fused.Result)
	metrics.QueryDuration.WithLabelValues(string(res.Tier())).Observe(time.Since(start).Seconds())
	metrics.QueriesTotal.WithLabelValues(string(res.Tier()), "ok").Inc()
	if res.Tier().Degraded() {
		log.Warn("query answered degraded", zap.String("tier", string(res.Tier())))
	}
	return res, nil
}

func (s *Service) execute(
	ctx context.Context, q *query.Query, fp uint64, sources []fallback.Source,
) (fused.Result, error) {
	lists, t, err := s.runner.Run(ctx, sources)
	if err != nil {
		return fused.Result{}, err
	}

	docs := fusion.Top(fusion.Fuse(lists, s.rrfK), q.TopK())

	if s.reranker != nil {
		reranked, err := s.reranker.Rerank(ctx, q, docs)
		if err != nil {
			// Reranking is a refinement, not a dependency: keep fusion order.
			logger.FromContext(ctx).Warn("reranker failed, keeping fusion order", zap.Error(err))
		} else {
			docs = reranked
		}
	}

	res := fused.NewResult(docs, t)
	s.cache.Put(q.Tenant(), fp, res)
	return res, nil
}

// assembleSources selects the backends for a query. Every source closure is
// independently cancellable; embedding a text query happens inside the
// vector source so a slow gateway degrades the vector family instead of
// stalling the request.
func (s *Service) assembleSources(q *query.Query) ([]fallback.Source, error) {
	vectorTimeout := s.vectorTimeout
	keywordTimeout := s.keywordTimeout
	if q.Timeout() > 0 {
		vectorTimeout = q.Timeout()
		keywordTimeout = q.Timeout()
	}

	weights := s.settings.Weights(q.Tenant()).Normalized()

	// Text query against a non-text modality needs translation.
	if q.Target() != modality.Text && !q.HasVector() {
		return s.xmodal.Sources(q, weights, vectorTimeout, keywordTimeout)
	}

	var sources []fallback.Source

	vectorRun := func(ctx context.Context) ([]candidate.Candidate, error) {
		vec := q.Vector()
		if !q.HasVector() {
			if s.embed == nil {
				return nil, fmt.Errorf("no embedding gateway configured: %w", domain.ErrEmbeddingProviderError)
			}
			emb, err := s.embed.Embed(ctx, q.Text())
			if err != nil {
				return nil, fmt.Errorf("vectorize query: %w", err)
			}
			vec = emb.Embedding
		}
		return s.similarity.Search(ctx, q.Tenant(), q.Target(), vec, q.TopK(), q.Filters())
	}
	sources = append(sources, fallback.Source{
		Name:    repoindex.SourceVector,
		Kind:    fallback.KindVector,
		Weight:  weights.Vector,
		Timeout: vectorTimeout,
		Run:     vectorRun,
	})

	// Keyword search needs query text; pure vector queries skip it.
	if q.Text() != "" && q.Target() == modality.Text {
		sources = append(sources, fallback.Source{
			Name:    repoindex.SourceKeyword,
			Kind:    fallback.KindKeyword,
			Weight:  weights.Keyword,
			Timeout: keywordTimeout,
			Run: func(ctx context.Context) ([]candidate.Candidate, error) {
				return s.keyword.Search(ctx, q.Tenant(), q.Target(), q.Text(), q.TopK(), q.Filters())
			},
		})
	}

	return sources, nil
}

// Invalidate drops every cached result for a tenant. Called by the
// ingestion collaborator when the tenant's documents change.
func (s *Service) Invalidate(ctx context.Context, tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant_id is required", domain.ErrInvalidQuery)
	}
	s.cache.Invalidate(tenant)
	logger.FromContext(ctx).Info("result cache invalidated", zap.String("tenant", tenant))
	return nil
}

// IsCallerError reports whether err should be surfaced as a caller mistake
// rather than a backend condition.
func IsCallerError(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrUnsupportedModalityPair)
}
