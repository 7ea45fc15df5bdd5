// Package config provides configuration management for Salient.
// It loads settings from environment variables with the SALIENT_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional YAML file can be layered underneath the environment:
// LoadConfigFromFile reads file values first, then lets environment
// variables override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/salient/internal/engine"
	"github.com/scrypster/salient/internal/oracle"
)

// Config holds all configuration settings for the Salient engine.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Anchors AnchorsConfig `yaml:"anchors"`
}

// EngineConfig contains the scoring and significance parameters.
type EngineConfig struct {
	K             int     `yaml:"k"`               // Candidate window size (default: 8)
	HalfLifeTurns int     `yaml:"half_life_turns"` // Age-decay half-life in turns (default: 30)
	NullSamples   int     `yaml:"null_samples"`    // Minimum pooled null sample count (default: 12)
	Policy        string  `yaml:"policy"`          // Significance policy: fdr, z-threshold (default: fdr)
	FDRAlpha      float64 `yaml:"fdr_alpha"`       // Benjamini-Hochberg alpha (default: 0.1)
	ZThreshold    float64 `yaml:"z_threshold"`     // Robust-z cutoff for the z-threshold policy (default: 1.28)
	AlphaMix      float64 `yaml:"alpha_mix"`       // Weight of the counterfactual delta vs. surprisal (default: 0.6)
	Seed          int64   `yaml:"seed"`            // Null-sampling seed; 0 means time-derived
}

// OracleConfig contains loss-oracle provider configuration.
type OracleConfig struct {
	Provider          string        `yaml:"provider"`            // Oracle provider: local, ollama, openai (default: local)
	BaseURL           string        `yaml:"base_url"`            // Embedding API URL (default: http://localhost:11434)
	APIKey            string        `yaml:"api_key"`             // API key for hosted providers
	Model             string        `yaml:"model"`               // Embedding model name
	Timeout           time.Duration `yaml:"timeout"`             // Per-request timeout (default: 10s)
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Client-side rate limit; 0 disables
	CacheSize         int           `yaml:"cache_size"`          // Embedding LRU cache size (default: 4096)
}

// AnchorsConfig contains long-term anchor memory configuration.
type AnchorsConfig struct {
	Store               string  `yaml:"store"`                 // Anchor store: memory, sqlite, postgres (default: memory)
	Capacity            int     `yaml:"capacity"`              // Maximum retained anchors (default: 64)
	Path                string  `yaml:"path"`                  // SQLite database path (default: ./data/anchors.db)
	DSN                 string  `yaml:"dsn"`                   // Postgres connection string
	MMRLambda           float64 `yaml:"mmr_lambda"`            // Relevance/diversity trade-off (default: 0.7)
	Boost               float64 `yaml:"boost"`                 // Per-anchor score boost factor (default: 0.2)
	TopN                int     `yaml:"top_n"`                 // Anchors consulted and promoted per turn (default: 5)
	MinAnchorSimilarity float64 `yaml:"min_anchor_similarity"` // Cosine floor for an anchor to contribute (default: 0.5)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the SALIENT_ prefix.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	applyEnv(cfg)
	return cfg, nil
}

// LoadConfigFromFile loads configuration from a YAML file, then applies
// environment variable overrides on top. The environment takes precedence
// over the file for every setting it names.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// EngineOptions maps the configuration onto engine options, filling in the
// anchor parameters from the anchors section.
func (c *Config) EngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.K = c.Engine.K
	opts.HalfLifeTurns = c.Engine.HalfLifeTurns
	opts.NullSamples = c.Engine.NullSamples
	opts.Policy = engine.SignificancePolicy(c.Engine.Policy)
	opts.FDRAlpha = c.Engine.FDRAlpha
	opts.ZThreshold = c.Engine.ZThreshold
	opts.AlphaMix = c.Engine.AlphaMix
	opts.Seed = c.Engine.Seed
	opts.MMRLambda = c.Anchors.MMRLambda
	opts.AnchorBoost = c.Anchors.Boost
	opts.AnchorTopN = c.Anchors.TopN
	opts.MinAnchorSimilarity = c.Anchors.MinAnchorSimilarity
	return opts
}

// OracleConfig maps the configuration onto the oracle factory config.
func (c *Config) OracleConfig() oracle.Config {
	return oracle.Config{
		Provider:          c.Oracle.Provider,
		BaseURL:           c.Oracle.BaseURL,
		APIKey:            c.Oracle.APIKey,
		Model:             c.Oracle.Model,
		Timeout:           c.Oracle.Timeout,
		RequestsPerSecond: c.Oracle.RequestsPerSecond,
		CacheSize:         c.Oracle.CacheSize,
	}
}

// defaultConfig constructs a Config with defaults only. applyEnv layers
// SALIENT_ environment variables on top.
func defaultConfig() *Config {
	def := engine.DefaultOptions()
	return &Config{
		Engine: EngineConfig{
			K:             def.K,
			HalfLifeTurns: def.HalfLifeTurns,
			NullSamples:   def.NullSamples,
			Policy:        string(def.Policy),
			FDRAlpha:      def.FDRAlpha,
			ZThreshold:    def.ZThreshold,
			AlphaMix:      def.AlphaMix,
		},
		Oracle: OracleConfig{
			Provider:  "local",
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			Timeout:   10 * time.Second,
			CacheSize: 4096,
		},
		Anchors: AnchorsConfig{
			Store:               "memory",
			Capacity:            64,
			Path:                "./data/anchors.db",
			MMRLambda:           def.MMRLambda,
			Boost:               def.AnchorBoost,
			TopN:                def.AnchorTopN,
			MinAnchorSimilarity: def.MinAnchorSimilarity,
		},
	}
}

// applyEnv overrides cfg with SALIENT_ environment variables where set.
func applyEnv(cfg *Config) {
	cfg.Engine.K = getEnvInt("SALIENT_K", cfg.Engine.K)
	cfg.Engine.HalfLifeTurns = getEnvInt("SALIENT_HALF_LIFE_TURNS", cfg.Engine.HalfLifeTurns)
	cfg.Engine.NullSamples = getEnvInt("SALIENT_NULL_SAMPLES", cfg.Engine.NullSamples)
	cfg.Engine.Policy = getEnv("SALIENT_POLICY", cfg.Engine.Policy)
	cfg.Engine.FDRAlpha = getEnvFloat("SALIENT_FDR_ALPHA", cfg.Engine.FDRAlpha)
	cfg.Engine.ZThreshold = getEnvFloat("SALIENT_Z_THRESHOLD", cfg.Engine.ZThreshold)
	cfg.Engine.AlphaMix = getEnvFloat("SALIENT_ALPHA_MIX", cfg.Engine.AlphaMix)
	cfg.Engine.Seed = getEnvInt64("SALIENT_SEED", cfg.Engine.Seed)

	cfg.Oracle.Provider = getEnv("SALIENT_ORACLE_PROVIDER", cfg.Oracle.Provider)
	cfg.Oracle.BaseURL = getEnv("SALIENT_ORACLE_URL", cfg.Oracle.BaseURL)
	cfg.Oracle.APIKey = getEnv("SALIENT_ORACLE_API_KEY", cfg.Oracle.APIKey)
	cfg.Oracle.Model = getEnv("SALIENT_EMBEDDING_MODEL", cfg.Oracle.Model)
	cfg.Oracle.Timeout = getEnvDuration("SALIENT_ORACLE_TIMEOUT", cfg.Oracle.Timeout)
	cfg.Oracle.RequestsPerSecond = getEnvFloat("SALIENT_ORACLE_RPS", cfg.Oracle.RequestsPerSecond)
	cfg.Oracle.CacheSize = getEnvInt("SALIENT_EMBEDDING_CACHE_SIZE", cfg.Oracle.CacheSize)

	cfg.Anchors.Store = getEnv("SALIENT_ANCHOR_STORE", cfg.Anchors.Store)
	cfg.Anchors.Capacity = getEnvInt("SALIENT_ANCHOR_CAPACITY", cfg.Anchors.Capacity)
	cfg.Anchors.Path = getEnv("SALIENT_ANCHOR_PATH", cfg.Anchors.Path)
	cfg.Anchors.DSN = getEnv("SALIENT_ANCHOR_DSN", cfg.Anchors.DSN)
	cfg.Anchors.MMRLambda = getEnvFloat("SALIENT_MMR_LAMBDA", cfg.Anchors.MMRLambda)
	cfg.Anchors.Boost = getEnvFloat("SALIENT_ANCHOR_BOOST", cfg.Anchors.Boost)
	cfg.Anchors.TopN = getEnvInt("SALIENT_ANCHOR_TOP_N", cfg.Anchors.TopN)
	cfg.Anchors.MinAnchorSimilarity = getEnvFloat("SALIENT_MIN_ANCHOR_SIMILARITY", cfg.Anchors.MinAnchorSimilarity)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves a 64-bit integer environment variable or returns a
// default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "30s") or
// returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
