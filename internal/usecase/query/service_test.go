package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/cache"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/candidate"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/fused"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
)

type mockSimilarity struct {
	items []candidate.Candidate
	err   error
	calls int
}

func (m *mockSimilarity) Search(
	_ context.Context, _ string, _ modality.Modality, _ []float32, _ int, _ filter.Expression,
) ([]candidate.Candidate, error) {
	m.calls++
	return m.items, m.err
}

type mockKeyword struct {
	items []candidate.Candidate
	err   error
	calls int
}

func (m *mockKeyword) Search(
	_ context.Context, _ string, _ modality.Modality, _ string, _ int, _ filter.Expression,
) ([]candidate.Candidate, error) {
	m.calls++
	return m.items, m.err
}

type mockCrossModal struct {
	sources []fallback.Source
	err     error
	calls   int
}

func (m *mockCrossModal) Supported(source, target modality.Modality) bool {
	return source == modality.Text && target == modality.Image
}

func (m *mockCrossModal) Sources(
	_ *query.Query, _ domain.Weights, _, _ time.Duration,
) ([]fallback.Source, error) {
	m.calls++
	return m.sources, m.err
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type defaultSettings struct{}

func (defaultSettings) Weights(string) domain.Weights { return domain.DefaultWeights() }

func newService(t *testing.T, sim *mockSimilarity, kw *mockKeyword, xm *mockCrossModal) *Service {
	t.Helper()
	c, err := cache.New(64, time.Minute, 10*time.Second)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return New(sim, kw, xm, &mockEmbedder{vec: []float32{0.1, 0.2}}, c, fallback.New(), defaultSettings{})
}

func textQuery(t *testing.T, text string) *query.Query {
	t.Helper()
	q, err := query.New("t1", text, nil, modality.Text, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func cands(ids ...string) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(ids))
	for i, id := range ids {
		out = append(out, candidate.New(id, 1.0-float64(i)*0.1))
	}
	return out
}

func TestSearch_FullTier(t *testing.T) {
	sim := &mockSimilarity{items: cands("d3", "d1", "d5")}
	kw := &mockKeyword{items: cands("d1", "d2", "d3")}
	s := newService(t, sim, kw, &mockCrossModal{})

	res, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier().Degraded() {
		t.Errorf("tier = %s, want full", res.Tier())
	}
	if res.CacheHit() {
		t.Error("first query must not be a cache hit")
	}

	// Equal-weight RRF over [d3 d1 d5] and [d1 d2 d3] ranks d1 first.
	docs := res.Documents()
	if len(docs) != 4 {
		t.Fatalf("got %d documents, want 4", len(docs))
	}
	if docs[0].ID() != "d1" {
		t.Errorf("top document = %s, want d1", docs[0].ID())
	}
	if len(docs[0].Sources()) != 2 {
		t.Errorf("d1 sources = %v, want both backends", docs[0].Sources())
	}
}

func TestSearch_SecondIdenticalQueryHitsCache(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1")}
	kw := &mockKeyword{items: cands("d1")}
	s := newService(t, sim, kw, &mockCrossModal{})

	if _, err := s.Search(context.Background(), textQuery(t, "refund policy")); err != nil {
		t.Fatalf("first query: %v", err)
	}
	res, err := s.Search(context.Background(), textQuery(t, " Refund\tPOLICY "))
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if !res.CacheHit() {
		t.Error("normalized repeat query should be served from cache")
	}
	if sim.calls != 1 || kw.calls != 1 {
		t.Errorf("backend calls = %d/%d, want 1/1", sim.calls, kw.calls)
	}
}

func TestSearch_KeywordFailureDegradesToVectorOnly(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1", "d2")}
	kw := &mockKeyword{err: domain.ErrIndexUnavailable}
	s := newService(t, sim, kw, &mockCrossModal{})

	res, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Tier().Degraded() {
		t.Fatalf("tier = %s, want degraded", res.Tier())
	}
	if got := string(res.Tier()); got != "vector_only" {
		t.Errorf("tier = %s, want vector_only", got)
	}
	if len(res.Documents()) != 2 {
		t.Errorf("got %d documents, want 2 from the surviving backend", len(res.Documents()))
	}
}

func TestSearch_AllSourcesFailed(t *testing.T) {
	sim := &mockSimilarity{err: domain.ErrIndexUnavailable}
	kw := &mockKeyword{err: domain.ErrTimeout}
	s := newService(t, sim, kw, &mockCrossModal{})

	_, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("error = %v, want ErrAllSourcesFailed", err)
	}
	// Both causes travel with the error.
	if !errors.Is(err, domain.ErrIndexUnavailable) || !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("joined causes missing from %v", err)
	}
}

func TestSearch_FailureIsNotCached(t *testing.T) {
	sim := &mockSimilarity{err: domain.ErrIndexUnavailable}
	kw := &mockKeyword{err: domain.ErrIndexUnavailable}
	s := newService(t, sim, kw, &mockCrossModal{})

	if _, err := s.Search(context.Background(), textQuery(t, "q")); err == nil {
		t.Fatal("expected failure")
	}

	// Backends recover; the earlier failure must not be replayed.
	sim.err, sim.items = nil, cands("d1")
	kw.err, kw.items = nil, cands("d1")

	res, err := s.Search(context.Background(), textQuery(t, "q"))
	if err != nil {
		t.Fatalf("recovered query: %v", err)
	}
	if res.CacheHit() {
		t.Error("failure outcome was cached")
	}
}

func TestSearch_VectorQuerySkipsKeyword(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1")}
	kw := &mockKeyword{items: cands("d9")}
	s := newService(t, sim, kw, &mockCrossModal{})

	q, err := query.New("t1", "", []float32{0.1, 0.2}, modality.Text, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	res, err := s.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kw.calls != 0 {
		t.Error("keyword backend called for a pure vector query")
	}
	// Single requested family answering is full service, not degraded.
	if res.Tier().Degraded() {
		t.Errorf("tier = %s, want full", res.Tier())
	}
}

func TestSearch_CrossModalUsesDualPath(t *testing.T) {
	xm := &mockCrossModal{sources: []fallback.Source{
		{
			Name: repoindex.SourceJointSpace, Kind: fallback.KindVector, Weight: 0.7,
			Timeout: time.Second,
			Run: func(context.Context) ([]candidate.Candidate, error) {
				return cands("img1", "img2"), nil
			},
		},
		{
			Name: repoindex.SourceAuxText, Kind: fallback.KindKeyword, Weight: 0.3,
			Timeout: time.Second,
			Run: func(context.Context) ([]candidate.Candidate, error) {
				return cands("img2"), nil
			},
		},
	}}
	s := newService(t, &mockSimilarity{}, &mockKeyword{}, xm)

	q, err := query.New("t1", "red bicycle", nil, modality.Image, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	res, err := s.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if xm.calls != 1 {
		t.Fatalf("cross-modal source assembly calls = %d, want 1", xm.calls)
	}
	if res.Tier().Degraded() {
		t.Errorf("tier = %s, want full (both families answered)", res.Tier())
	}
	// img2 appears in both paths and must outrank img1.
	docs := res.Documents()
	if len(docs) != 2 || docs[0].ID() != "img2" {
		t.Errorf("documents = %v, want img2 first", docs)
	}
}

func TestSearch_UnsupportedModalityPairBeforeBackends(t *testing.T) {
	sim := &mockSimilarity{}
	xm := &mockCrossModal{err: fmt.Errorf("%w: text -> audio", domain.ErrUnsupportedModalityPair)}
	s := newService(t, sim, &mockKeyword{}, xm)

	q, err := query.New("t1", "speech", nil, modality.Audio, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	_, err = s.Search(context.Background(), &q)
	if !errors.Is(err, domain.ErrUnsupportedModalityPair) {
		t.Fatalf("error = %v, want ErrUnsupportedModalityPair", err)
	}
	if sim.calls != 0 {
		t.Error("backend reached for an unsupported modality pair")
	}
	if !IsCallerError(err) {
		t.Error("unsupported pair should classify as a caller error")
	}
}

func TestSearch_IsolationViolationHalts(t *testing.T) {
	sim := &mockSimilarity{err: domain.NewTenantIsolation("t1", "t2")}
	kw := &mockKeyword{items: cands("d1")}
	s := newService(t, sim, kw, &mockCrossModal{})

	_, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if !errors.Is(err, domain.ErrTenantIsolation) {
		t.Fatalf("error = %v, want ErrTenantIsolation (never degrade around it)", err)
	}
}

func TestSearch_EmbedFailureCountsAsVectorFailure(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1")}
	kw := &mockKeyword{items: cands("d2")}
	c, err := cache.New(64, time.Minute, 10*time.Second)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	s := New(sim, kw, &mockCrossModal{}, &mockEmbedder{err: domain.ErrEmbeddingProviderError},
		c, fallback.New(), defaultSettings{})

	res, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(res.Tier()); got != "keyword_only" {
		t.Errorf("tier = %s, want keyword_only", got)
	}
	if sim.calls != 0 {
		t.Error("vector backend searched without an embedding")
	}
}

func TestSearch_RerankerRefinesOrder(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1", "d2")}
	kw := &mockKeyword{items: cands("d1", "d2")}
	s := newService(t, sim, kw, &mockCrossModal{})
	s.WithReranker(rerankFunc(func(_ context.Context, _ *query.Query, docs []fused.Document) ([]fused.Document, error) {
		out := make([]fused.Document, len(docs))
		for i, d := range docs {
			out[len(docs)-1-i] = d
		}
		return out, nil
	}))

	res, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Documents()[0].ID() != "d2" {
		t.Errorf("top document = %s, want reranked d2", res.Documents()[0].ID())
	}
}

func TestSearch_RerankerFailureKeepsFusionOrder(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1", "d2")}
	kw := &mockKeyword{items: cands("d1", "d2")}
	s := newService(t, sim, kw, &mockCrossModal{})
	s.WithReranker(rerankFunc(func(context.Context, *query.Query, []fused.Document) ([]fused.Document, error) {
		return nil, errors.New("model overloaded")
	}))

	res, err := s.Search(context.Background(), textQuery(t, "refund policy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Documents()) != 2 || res.Documents()[0].ID() != "d1" {
		t.Errorf("fusion order not preserved: %v", res.Documents())
	}
}

func TestInvalidate(t *testing.T) {
	sim := &mockSimilarity{items: cands("d1")}
	kw := &mockKeyword{items: cands("d1")}
	s := newService(t, sim, kw, &mockCrossModal{})

	if _, err := s.Search(context.Background(), textQuery(t, "q")); err != nil {
		t.Fatalf("seed query: %v", err)
	}
	if err := s.Invalidate(context.Background(), "t1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	res, err := s.Search(context.Background(), textQuery(t, "q"))
	if err != nil {
		t.Fatalf("post-invalidate query: %v", err)
	}
	if res.CacheHit() {
		t.Error("invalidated entry served from cache")
	}
	if sim.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (re-fetched after invalidation)", sim.calls)
	}

	if err := s.Invalidate(context.Background(), ""); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("empty tenant error = %v, want ErrInvalidQuery", err)
	}
}

type rerankFunc func(ctx context.Context, q *query.Query, docs []fused.Document) ([]fused.Document, error)

func (f rerankFunc) Rerank(ctx context.Context, q *query.Query, docs []fused.Document) ([]fused.Document, error) {
	return f(ctx, q, docs)
}
