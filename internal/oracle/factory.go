package oracle

import (
	"fmt"
	"time"
)

// Config selects and configures an Oracle implementation.
type Config struct {
	// Provider is one of "local", "ollama", "openai". Empty means local.
	Provider string

	// BaseURL overrides the provider endpoint (ollama, openai).
	BaseURL string

	// APIKey authenticates against hosted providers (openai).
	APIKey string

	// Model is the embedding model name; provider defaults apply if empty.
	Model string

	// Timeout is the per-request timeout for remote providers.
	Timeout time.Duration

	// RequestsPerSecond caps the provider request rate. Zero disables.
	RequestsPerSecond float64

	// CacheSize bounds the embedding memoization cache (remote providers).
	CacheSize int
}

// New creates the Oracle selected by cfg.Provider.
func New(cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalOracle(), nil
	case "ollama":
		client := NewOllamaEmbeddingClient(OllamaEmbeddingConfig{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		return NewEmbeddingOracle(client, cfg.CacheSize)
	case "openai":
		client := NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		return NewEmbeddingOracle(client, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", cfg.Provider)
	}
}
