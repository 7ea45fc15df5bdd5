// Package oracle provides the pluggable loss/embedding capability consumed
// by the scoring engine. Two reference implementations ship with the
// package: a remote-API-backed oracle (Ollama or OpenAI embeddings) and a
// deterministic local fallback for offline use and unit testing.
package oracle

import (
	"context"
	"errors"
)

// MaxLoss is the sentinel loss returned when the conditioning history is
// empty: with nothing to condition on, the current turn is maximally hard
// to predict. It is the upper bound of the similarity-proxy loss range.
const MaxLoss = 2.0

// ErrMaskOutOfRange is returned when a masked-loss call references a
// history index that does not exist. This indicates caller misuse rather
// than a recoverable runtime condition.
var ErrMaskOutOfRange = errors.New("masked history index out of range")

// Oracle estimates how difficult the current utterance is to predict from
// a conditioning history, with or without one historical item masked out.
//
// All three operations are side-effect-free from the caller's perspective
// (implementations may cache internally). Failures propagate as explicit
// errors; an implementation must never silently return a zero loss.
type Oracle interface {
	// Embed returns a vector embedding for the text. Deterministic for a
	// given text within a session.
	Embed(ctx context.Context, text string) ([]float32, error)

	// LossWithHistory estimates the difficulty of predicting current from
	// history. An empty history yields MaxLoss.
	LossWithHistory(ctx context.Context, history []string, current string) (float64, error)

	// MaskedLoss is LossWithHistory with the history item at index masked
	// removed from consideration. Returns ErrMaskOutOfRange when masked
	// does not index into history.
	MaskedLoss(ctx context.Context, history []string, current string, masked int) (float64, error)
}

// SurprisalEstimator is an optional capability an Oracle may implement.
// When present, the scorer blends the counterfactual loss delta with this
// secondary surprisal signal under the alphaMix weighting. Discovered by
// type assertion; engines work identically without it.
type SurprisalEstimator interface {
	Surprisal(ctx context.Context, text string) (float64, error)
}

// Embedder is the transport-level interface the remote oracle wraps.
// Implementations return float32 vectors straight from the provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
