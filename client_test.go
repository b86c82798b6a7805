package rankfuse

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6379", "secret")(cfg)
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	WithDimensions(768)(cfg)
	if cfg.dimensions != 768 {
		t.Errorf("dimensions = %d, want 768", cfg.dimensions)
	}

	WithWeights(0.8, 0.2)(cfg)
	if cfg.weights.Vector != 0.8 || cfg.weights.Keyword != 0.2 {
		t.Errorf("weights = %v", cfg.weights)
	}

	WithBackendTimeouts(time.Second, 500*time.Millisecond)(cfg)
	if cfg.vectorTimeout != time.Second || cfg.keywordTimeout != 500*time.Millisecond {
		t.Errorf("timeouts = %v/%v", cfg.vectorTimeout, cfg.keywordTimeout)
	}

	WithRRFConstant(30)(cfg)
	if cfg.rrfK != 30 {
		t.Errorf("rrfK = %d, want 30", cfg.rrfK)
	}

	WithResultCache(128, time.Minute, 10*time.Second)(cfg)
	if cfg.maxEntries != 128 || cfg.cacheTTL != time.Minute || cfg.degradedTTL != 10*time.Second {
		t.Errorf("cache = %d/%v/%v", cfg.maxEntries, cfg.cacheTTL, cfg.degradedTTL)
	}
}

func TestEmbedderAdapter(t *testing.T) {
	called := false
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			called = true
			return EmbeddingResult{
				Embedding:    []float32{1, 2, 3},
				PromptTokens: 5,
				TotalTokens:  10,
			}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("inner embedder was not called")
	}
	if len(result.Embedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(result.Embedding))
	}
	if result.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", result.TotalTokens)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	adapter := &embedderAdapter{inner: mock}
	_, err := adapter.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

func TestQueryBuilder_CollectsBuildErrors(t *testing.T) {
	c := &Client{}
	b := c.Query("t1").Text("q").Where("", "value")

	if _, err := b.Do(context.Background()); err == nil {
		t.Fatal("expected build error for empty filter key")
	}
}

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}
