// Package rankfuse is the embedded client: the full retrieval engine wired
// over a Redis/Valkey search backend, without the HTTP layer. Applications
// that already run next to the index store can query it in-process.
package rankfuse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/cache"
	"github.com/kailas-cloud/rankfuse/internal/crossmodal"
	"github.com/kailas-cloud/rankfuse/internal/db"
	dbRedis "github.com/kailas-cloud/rankfuse/internal/db/redis"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
	queryuc "github.com/kailas-cloud/rankfuse/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the rankfuse embedded entry point.
type Client struct {
	store db.Store
	svc   *queryuc.Service
}

// New creates a Client and connects to the index store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:  0,
		weights:     domain.DefaultWeights(),
		cacheTTL:    cache.DefaultTTL,
		degradedTTL: cache.DefaultDegradedTTL,
		maxEntries:  cache.DefaultMaxEntries,
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("rankfuse: index store address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("rankfuse: connect: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("rankfuse: index store not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	registry := repoindex.NewRegistry(store, staticDimensions(cfg.dimensions))
	similarity := repoindex.NewSimilarityClient(store, registry)
	keyword := repoindex.NewKeywordClient(store, registry)

	var queryEmbedder, jointEmbedder domain.Embedder
	if cfg.embedder != nil {
		queryEmbedder = &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.jointEmbedder != nil {
		jointEmbedder = &embedderAdapter{inner: cfg.jointEmbedder}
	}

	matcher := crossmodal.New(jointEmbedder, similarity, keyword)

	resultCache, err := cache.New(cfg.maxEntries, cfg.cacheTTL, cfg.degradedTTL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("rankfuse: result cache: %w", err)
	}

	svc := queryuc.New(
		similarity, keyword, matcher, queryEmbedder,
		resultCache, fallback.New(), staticWeights(cfg.weights),
	)
	if cfg.vectorTimeout > 0 || cfg.keywordTimeout > 0 {
		svc.WithTimeouts(cfg.vectorTimeout, cfg.keywordTimeout)
	}
	if cfg.rrfK > 0 {
		svc.WithRRFConstant(cfg.rrfK)
	}

	return &Client{store: store, svc: svc}, nil
}

// Query starts a fluent query for a tenant.
func (c *Client) Query(tenant string) *QueryBuilder {
	return &QueryBuilder{client: c, tenant: tenant}
}

// Invalidate drops every cached result for a tenant.
func (c *Client) Invalidate(ctx context.Context, tenant string) error {
	return c.svc.Invalidate(ctx, tenant)
}

// Close releases the store connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// EmbeddingResult is the public embedding output.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes query text. Supplied by the application; the embedded
// client does not ship a provider.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// embedderAdapter bridges the public Embedder to the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embedding,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// staticDimensions resolves every tenant to the same configured dimension.
type staticDimensions int

func (d staticDimensions) Dimensions(string) int { return int(d) }

// staticWeights resolves every tenant to the same fusion weights.
type staticWeights domain.Weights

func (w staticWeights) Weights(string) domain.Weights { return domain.Weights(w) }
