package rankfuse

import (
	"time"

	"github.com/kailas-cloud/rankfuse/internal/domain"
)

// Option configures the embedded client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	password string

	dimensions int
	weights    domain.Weights

	embedder      Embedder
	jointEmbedder Embedder

	vectorTimeout  time.Duration
	keywordTimeout time.Duration
	rrfK           int

	cacheTTL    time.Duration
	degradedTTL time.Duration
	maxEntries  int
}

// WithRedis sets the index store address and password. Valkey deployments
// use the same option; the wire protocol is identical.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithDimensions sets the expected query vector dimensionality.
func WithDimensions(dims int) Option {
	return func(c *clientConfig) {
		c.dimensions = dims
	}
}

// WithWeights sets the fusion weights for the vector and keyword sources.
func WithWeights(vector, keyword float64) Option {
	return func(c *clientConfig) {
		c.weights.Vector = vector
		c.weights.Keyword = keyword
	}
}

// WithEmbedder sets the gateway used to vectorize text queries.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithJointEmbedder sets the joint text/image space gateway used for
// cross-modal queries.
func WithJointEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.jointEmbedder = e
	}
}

// WithBackendTimeouts overrides the per-backend deadlines.
func WithBackendTimeouts(vector, keyword time.Duration) Option {
	return func(c *clientConfig) {
		c.vectorTimeout = vector
		c.keywordTimeout = keyword
	}
}

// WithRRFConstant overrides the rank-fusion damping constant.
func WithRRFConstant(k int) Option {
	return func(c *clientConfig) {
		c.rrfK = k
	}
}

// WithResultCache overrides the result cache sizing and lifetimes.
func WithResultCache(maxEntries int, ttl, degradedTTL time.Duration) Option {
	return func(c *clientConfig) {
		if maxEntries > 0 {
			c.maxEntries = maxEntries
		}
		if ttl > 0 {
			c.cacheTTL = ttl
		}
		if degradedTTL > 0 {
			c.degradedTTL = degradedTTL
		}
	}
}
