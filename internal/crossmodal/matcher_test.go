package crossmodal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/rankfuse/internal/db"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/domain/modality"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/filter"
	"github.com/kailas-cloud/rankfuse/internal/domain/search/query"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
)

type mockStore struct {
	knnResult  *db.SearchResult
	bm25Result *db.SearchResult
	lastText   *db.TextQuery
}

func (m *mockStore) SearchKNN(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
	return m.knnResult, nil
}

func (m *mockStore) SearchBM25(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.lastText = q
	return m.bm25Result, nil
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) { return true, nil }
func (m *mockStore) SupportsTextSearch(_ context.Context) bool             { return true }

type staticDims int

func (d staticDims) Dimensions(_ string) int { return int(d) }

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

func newMatcher(store *mockStore, emb *mockEmbedder) *Matcher {
	reg := repoindex.NewRegistry(store, staticDims(2))
	return New(emb, repoindex.NewSimilarityClient(store, reg), repoindex.NewKeywordClient(store, reg))
}

func imageQuery(t *testing.T) *query.Query {
	t.Helper()
	q, err := query.New("t1", "red bicycle", nil, modality.Image, filter.Expression{}, 5, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func TestSupported(t *testing.T) {
	m := newMatcher(&mockStore{}, &mockEmbedder{})

	if !m.Supported(modality.Text, modality.Image) {
		t.Error("text -> image should be supported")
	}
	for _, target := range []modality.Modality{modality.Table, modality.Audio, modality.Video} {
		if m.Supported(modality.Text, target) {
			t.Errorf("text -> %s should be unsupported", target)
		}
	}
}

func TestTranslate_UnsupportedPair(t *testing.T) {
	m := newMatcher(&mockStore{}, &mockEmbedder{})

	_, err := m.Translate(context.Background(), "q", modality.Text, modality.Audio)
	if !errors.Is(err, domain.ErrUnsupportedModalityPair) {
		t.Fatalf("error = %v, want ErrUnsupportedModalityPair", err)
	}
}

func TestSources_DualPath(t *testing.T) {
	key := fmt.Sprintf("%st1:image:%s", repoindex.KeyPrefix, "img1")
	store := &mockStore{
		knnResult:  &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: key, Score: 0.8}}},
		bm25Result: &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: key, Score: 3.1}}},
	}
	m := newMatcher(store, &mockEmbedder{vec: []float32{0.1, 0.2}})

	sources, err := m.Sources(imageQuery(t), domain.DefaultWeights(), time.Second, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 (dual path)", len(sources))
	}

	byName := map[string]fallback.Source{}
	for _, s := range sources {
		byName[s.Name] = s
	}

	joint, ok := byName[repoindex.SourceJointSpace]
	if !ok || joint.Kind != fallback.KindVector {
		t.Error("joint-space source missing or not vector-family")
	}
	proxy, ok := byName[repoindex.SourceAuxText]
	if !ok || proxy.Kind != fallback.KindKeyword {
		t.Error("aux-text source missing or not keyword-family")
	}

	// Both paths run independently and return separate lists.
	for name, s := range byName {
		items, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(items) != 1 || items[0].ID() != "img1" {
			t.Errorf("%s: items = %v", name, items)
		}
	}

	// The proxy path must score the auxiliary-text field, not the content field.
	if store.lastText == nil || store.lastText.Field == "" {
		t.Error("aux-text path did not select the auxiliary text field")
	}
}

func TestSources_UnsupportedTarget(t *testing.T) {
	m := newMatcher(&mockStore{}, &mockEmbedder{})
	q, err := query.New("t1", "speech", nil, modality.Audio, filter.Expression{}, 5, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	_, err = m.Sources(&q, domain.DefaultWeights(), time.Second, time.Second)
	if !errors.Is(err, domain.ErrUnsupportedModalityPair) {
		t.Fatalf("error = %v, want ErrUnsupportedModalityPair", err)
	}
}

func TestSources_JointPathPropagatesEmbedFailure(t *testing.T) {
	m := newMatcher(&mockStore{}, &mockEmbedder{err: domain.ErrEmbeddingProviderError})

	sources, err := m.Sources(imageQuery(t), domain.DefaultWeights(), time.Second, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range sources {
		if s.Name != repoindex.SourceJointSpace {
			continue
		}
		if _, err := s.Run(context.Background()); !errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Errorf("joint path error = %v, want embedding provider error", err)
		}
	}
}
