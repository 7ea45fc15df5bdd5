package oracle

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the per-session embedding memoization cache.
const defaultCacheSize = 4096

// EmbeddingOracle implements Oracle on top of a remote embedding provider.
// Loss estimates use the similarity proxy: a turn is easy to predict when
// some history item embeds close to it.
//
// Embeddings are memoized per distinct text in a concurrency-safe LRU
// cache, so the repeated masked-loss and null-sample calls of one analysis
// hit the provider once per unique utterance.
type EmbeddingOracle struct {
	embedder Embedder
	cache    *lru.Cache[string, []float32]
}

// NewEmbeddingOracle creates an oracle backed by the given embedder.
// cacheSize bounds the embedding memoization cache; values <= 0 use the
// default.
func NewEmbeddingOracle(embedder Embedder, cacheSize int) (*EmbeddingOracle, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &EmbeddingOracle{embedder: embedder, cache: cache}, nil
}

// Embed returns the embedding for text, from cache when available.
func (o *EmbeddingOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := o.cache.Get(text); ok {
		return vec, nil
	}
	vec, err := o.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	o.cache.Add(text, vec)
	return vec, nil
}

// LossWithHistory estimates the difficulty of predicting current from
// history. An empty history yields MaxLoss.
func (o *EmbeddingOracle) LossWithHistory(ctx context.Context, history []string, current string) (float64, error) {
	return o.loss(ctx, history, current, -1)
}

// MaskedLoss is LossWithHistory with the history item at index masked
// removed from consideration.
func (o *EmbeddingOracle) MaskedLoss(ctx context.Context, history []string, current string, masked int) (float64, error) {
	if masked < 0 || masked >= len(history) {
		return 0, fmt.Errorf("%w: %d of %d", ErrMaskOutOfRange, masked, len(history))
	}
	return o.loss(ctx, history, current, masked)
}

// loss computes the similarity-proxy loss, skipping the history index
// skip (-1 skips nothing).
func (o *EmbeddingOracle) loss(ctx context.Context, history []string, current string, skip int) (float64, error) {
	kept := make([]string, 0, len(history))
	for i, h := range history {
		if i == skip {
			continue
		}
		kept = append(kept, h)
	}
	if len(kept) == 0 {
		return MaxLoss, nil
	}

	cur, err := o.Embed(ctx, current)
	if err != nil {
		return 0, err
	}

	vecs := make([][]float32, len(kept))
	for i, h := range kept {
		vec, err := o.Embed(ctx, h)
		if err != nil {
			return 0, err
		}
		vecs[i] = vec
	}

	return similarityLoss(cur, vecs), nil
}

// CacheLen returns the number of memoized embeddings. Used by callers for
// diagnostics.
func (o *EmbeddingOracle) CacheLen() int {
	return o.cache.Len()
}

// HealthCheck probes the underlying provider when it supports probing.
// Providers without a probe are assumed healthy.
func (o *EmbeddingOracle) HealthCheck(ctx context.Context) error {
	if hc, ok := o.embedder.(interface {
		HealthCheck(ctx context.Context) error
	}); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Compile-time assertion.
var _ Oracle = (*EmbeddingOracle)(nil)
