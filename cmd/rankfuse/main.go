package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rankfuse/internal/cache"
	"github.com/kailas-cloud/rankfuse/internal/config"
	"github.com/kailas-cloud/rankfuse/internal/crossmodal"
	dbRedis "github.com/kailas-cloud/rankfuse/internal/db/redis"
	"github.com/kailas-cloud/rankfuse/internal/domain"
	"github.com/kailas-cloud/rankfuse/internal/fallback"
	logpkg "github.com/kailas-cloud/rankfuse/internal/logger"
	"github.com/kailas-cloud/rankfuse/internal/metrics"
	repoindex "github.com/kailas-cloud/rankfuse/internal/repository/index"
	chiTransport "github.com/kailas-cloud/rankfuse/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/rankfuse/internal/transport/openai"
	healthuc "github.com/kailas-cloud/rankfuse/internal/usecase/health"
	queryuc "github.com/kailas-cloud/rankfuse/internal/usecase/query"
	"github.com/kailas-cloud/rankfuse/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rankfuse API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Index store not ready", zap.Error(err))
	}
	logger.Info("Connected to index store")

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Pass nil interface (not typed nil pointer!) when a gateway is not
	// configured. Go gotcha: (*Embedder)(nil) wrapped in domain.Embedder != nil.
	var queryEmbedder, jointEmbedder domain.Embedder
	if e := buildEmbedder(cfg, "default", logger); e != nil {
		queryEmbedder = e
	}
	if e := buildEmbedder(cfg, cfg.CrossModal.JointVectorizer, logger); e != nil {
		jointEmbedder = e
	}

	registry := repoindex.NewRegistry(store, &cfg)
	similarity := repoindex.NewSimilarityClient(store, registry)
	keyword := repoindex.NewKeywordClient(store, registry)
	matcher := crossmodal.New(jointEmbedder, similarity, keyword)

	resultCache, err := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL(), cfg.Cache.DegradedTTL())
	if err != nil {
		logger.Fatal("Failed to create result cache", zap.Error(err))
	}

	querySvc := queryuc.New(
		similarity, keyword, matcher, queryEmbedder,
		resultCache, fallback.New(), &cfg,
	).
		WithTimeouts(cfg.Backends.VectorTimeout(), cfg.Backends.KeywordTimeout()).
		WithRRFConstant(cfg.Fusion.RRFK)

	var embeddingChecker healthuc.EmbeddingChecker
	if queryEmbedder != nil {
		embeddingChecker = newEmbeddingHealthChecker(queryEmbedder)
	}
	healthSvc := healthuc.New(store, embeddingChecker)

	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder creates the gateway client for a configured vectorizer.
// Returns nil when the vectorizer is not configured; the engine then serves
// only pre-vectorized and keyword queries for that path.
func buildEmbedder(cfg config.Config, vectorizer string, logger *zap.Logger) *openaiEmb.Embedder {
	vecCfg, ok := cfg.Embedding.Vectorizers[vectorizer]
	if !ok {
		logger.Warn("Vectorizer not configured", zap.String("vectorizer", vectorizer))
		return nil
	}
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	logger.Info("Embedder created",
		zap.String("vectorizer", vectorizer),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Logger:     logger,
	})
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
