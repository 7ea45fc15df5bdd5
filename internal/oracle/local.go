package oracle

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// localDimension is the dimensionality of the hash-based pseudo-embedding.
const localDimension = 64

// LocalOracle is a deterministic, network-free Oracle. Embeddings are
// produced by hashing character trigrams into a fixed-size signed bucket
// vector, which makes cosine similarity track surface-level text overlap.
// It exists for offline operation and reproducible tests; the vectors carry
// no semantic meaning beyond shared character n-grams.
//
// LocalOracle also implements SurprisalEstimator with a character-entropy
// heuristic, so the alphaMix blend path is exercisable without a provider.
type LocalOracle struct {
	mu    sync.RWMutex
	cache map[string][]float32
}

// NewLocalOracle creates a deterministic local oracle.
func NewLocalOracle() *LocalOracle {
	return &LocalOracle{cache: make(map[string][]float32)}
}

// Embed returns the hash-based pseudo-embedding for text. Results are
// memoized; the cache is safe for concurrent readers and writers.
func (o *LocalOracle) Embed(_ context.Context, text string) ([]float32, error) {
	o.mu.RLock()
	vec, ok := o.cache[text]
	o.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec = hashEmbed(text)

	o.mu.Lock()
	o.cache[text] = vec
	o.mu.Unlock()
	return vec, nil
}

// LossWithHistory estimates prediction difficulty via the similarity proxy.
// An empty history yields MaxLoss.
func (o *LocalOracle) LossWithHistory(ctx context.Context, history []string, current string) (float64, error) {
	return o.loss(ctx, history, current, -1)
}

// MaskedLoss is LossWithHistory with one history item removed.
func (o *LocalOracle) MaskedLoss(ctx context.Context, history []string, current string, masked int) (float64, error) {
	if masked < 0 || masked >= len(history) {
		return 0, fmt.Errorf("%w: %d of %d", ErrMaskOutOfRange, masked, len(history))
	}
	return o.loss(ctx, history, current, masked)
}

func (o *LocalOracle) loss(ctx context.Context, history []string, current string, skip int) (float64, error) {
	var vecs [][]float32
	for i, h := range history {
		if i == skip {
			continue
		}
		vec, err := o.Embed(ctx, h)
		if err != nil {
			return 0, err
		}
		vecs = append(vecs, vec)
	}
	if len(vecs) == 0 {
		return MaxLoss, nil
	}
	cur, err := o.Embed(ctx, current)
	if err != nil {
		return 0, err
	}
	return similarityLoss(cur, vecs), nil
}

// Surprisal returns a deterministic [0, 1] surprisal heuristic: the Shannon
// entropy of the text's rune distribution, normalized against 8 bits.
// Repetitive text scores low, character-diverse text scores high.
func (o *LocalOracle) Surprisal(_ context.Context, text string) (float64, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0, nil
	}

	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
	}

	var entropy float64
	total := float64(len(runes))
	for _, c := range counts {
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}

	return math.Min(entropy/8.0, 1.0), nil
}

// hashEmbed folds character trigrams into a signed bucket vector and
// L2-normalizes it. The low hash bit picks the sign so that unrelated
// trigram sets cancel rather than accumulate.
func hashEmbed(text string) []float32 {
	vec := make([]float32, localDimension)

	runes := []rune(text)
	if len(runes) < 3 {
		runes = append(runes, make([]rune, 3-len(runes))...)
	}

	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New64a()
		_, _ = h.Write([]byte(string(runes[i : i+3])))
		sum := h.Sum64()

		bucket := int(sum % localDimension)
		if (sum>>6)&1 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// Compile-time assertions.
var (
	_ Oracle             = (*LocalOracle)(nil)
	_ SurprisalEstimator = (*LocalOracle)(nil)
)
