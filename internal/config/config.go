// Package config loads the engine configuration from per-environment YAML
// files with ${VAR} substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/rankfuse/internal/domain"
)

// Config holds the rankfuse API configuration.
type Config struct {
	HTTP       HTTPConfig              `yaml:"http"`
	Database   DatabaseConfig          `yaml:"database"`
	Auth       AuthConfig              `yaml:"auth"`
	Backends   BackendsConfig          `yaml:"backends"`
	Fusion     FusionConfig            `yaml:"fusion"`
	Cache      CacheConfig             `yaml:"cache"`
	CrossModal CrossModalConfig        `yaml:"crossmodal"`
	Embedding  EmbeddingConfig         `yaml:"embedding"`
	Tenants    map[string]TenantConfig `yaml:"tenants"`
	Logging    LoggingConfig           `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds index store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BackendsConfig holds per-backend search settings.
type BackendsConfig struct {
	VectorTimeoutMS  int `yaml:"vector_timeout_ms"`
	KeywordTimeoutMS int `yaml:"keyword_timeout_ms"`
	MaxTopK          int `yaml:"max_top_k"`
}

// VectorTimeout returns the vector backend deadline.
func (b BackendsConfig) VectorTimeout() time.Duration {
	return time.Duration(b.VectorTimeoutMS) * time.Millisecond
}

// KeywordTimeout returns the keyword backend deadline.
func (b BackendsConfig) KeywordTimeout() time.Duration {
	return time.Duration(b.KeywordTimeoutMS) * time.Millisecond
}

// FusionConfig holds rank-fusion settings.
type FusionConfig struct {
	RRFK          int     `yaml:"rrf_k"`
	VectorWeight  float64 `yaml:"vector_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	TTLSec         int `yaml:"ttl_sec"`
	DegradedTTLSec int `yaml:"degraded_ttl_sec"`
	MaxEntries     int `yaml:"max_entries"`
}

// TTL returns the full-tier entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// DegradedTTL returns the degraded-tier entry lifetime.
func (c CacheConfig) DegradedTTL() time.Duration {
	return time.Duration(c.DegradedTTLSec) * time.Second
}

// CrossModalConfig holds text-to-image matching settings.
type CrossModalConfig struct {
	JointVectorizer string  `yaml:"joint_vectorizer"`
	JointWeight     float64 `yaml:"joint_weight"`
	ProxyWeight     float64 `yaml:"proxy_weight"`
}

// EmbeddingConfig holds embedding gateway settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// TenantConfig holds per-tenant overrides. Zero fields fall back to the
// engine defaults, so a tenant entry can override just one knob.
type TenantConfig struct {
	Dimensions    int     `yaml:"dimensions"`
	VectorWeight  float64 `yaml:"vector_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	JointWeight   float64 `yaml:"joint_weight"`
	ProxyWeight   float64 `yaml:"proxy_weight"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Backends.VectorTimeoutMS <= 0 {
		c.Backends.VectorTimeoutMS = 500
	}
	if c.Backends.KeywordTimeoutMS <= 0 {
		c.Backends.KeywordTimeoutMS = 300
	}
	if c.Backends.MaxTopK <= 0 {
		c.Backends.MaxTopK = 1000
	}
	if c.Fusion.RRFK <= 0 {
		c.Fusion.RRFK = 60
	}
	defaults := domain.DefaultWeights()
	if c.Fusion.VectorWeight <= 0 {
		c.Fusion.VectorWeight = defaults.Vector
	}
	if c.Fusion.KeywordWeight <= 0 {
		c.Fusion.KeywordWeight = defaults.Keyword
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.DegradedTTLSec <= 0 {
		c.Cache.DegradedTTLSec = 60
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 4096
	}
	if c.CrossModal.JointWeight <= 0 {
		c.CrossModal.JointWeight = defaults.Joint
	}
	if c.CrossModal.ProxyWeight <= 0 {
		c.CrossModal.ProxyWeight = defaults.Proxy
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Cache.DegradedTTLSec > c.Cache.TTLSec {
		return fmt.Errorf("cache.degraded_ttl_sec must not exceed cache.ttl_sec")
	}
	for name, v := range c.Embedding.Vectorizers {
		if v.Model == "" {
			return fmt.Errorf("embedding.vectorizers.%s.model is required", name)
		}
		if v.Provider != "" {
			if _, ok := c.Embedding.Providers[v.Provider]; !ok {
				return fmt.Errorf("embedding.vectorizers.%s references unknown provider %q", name, v.Provider)
			}
		}
	}
	if c.CrossModal.JointVectorizer != "" {
		if _, ok := c.Embedding.Vectorizers[c.CrossModal.JointVectorizer]; !ok {
			return fmt.Errorf("crossmodal.joint_vectorizer %q is not a configured vectorizer", c.CrossModal.JointVectorizer)
		}
	}
	return nil
}

// Weights returns the fusion weights for a tenant, applying any per-tenant
// overrides on top of the engine defaults.
func (c *Config) Weights(tenant string) domain.Weights {
	w := domain.Weights{
		Vector:  c.Fusion.VectorWeight,
		Keyword: c.Fusion.KeywordWeight,
		Joint:   c.CrossModal.JointWeight,
		Proxy:   c.CrossModal.ProxyWeight,
	}
	t, ok := c.Tenants[tenant]
	if !ok {
		return w
	}
	if t.VectorWeight > 0 {
		w.Vector = t.VectorWeight
	}
	if t.KeywordWeight > 0 {
		w.Keyword = t.KeywordWeight
	}
	if t.JointWeight > 0 {
		w.Joint = t.JointWeight
	}
	if t.ProxyWeight > 0 {
		w.Proxy = t.ProxyWeight
	}
	return w
}

// Dimensions returns the expected vector dimensionality for a tenant. Falls
// back to the default vectorizer's dimensions when the tenant has no override.
func (c *Config) Dimensions(tenant string) int {
	if t, ok := c.Tenants[tenant]; ok && t.Dimensions > 0 {
		return t.Dimensions
	}
	if v, ok := c.Embedding.Vectorizers["default"]; ok {
		return v.Dimensions
	}
	return 0
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./configs/
	if path := filepath.Join("configs", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "configs", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./configs/
	return filepath.Join("configs", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
