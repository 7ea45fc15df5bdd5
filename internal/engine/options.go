// Package engine implements online importance scoring for streaming
// dialogue: counterfactual (masked) loss scoring, null-distribution
// generation over reshuffled history, robust-z standardization with a
// multiple-comparison-corrected significance decision, MMR diversification,
// and bounded anchor memory.
package engine

import "fmt"

// SignificancePolicy selects how candidates are declared important.
type SignificancePolicy string

const (
	// PolicyFDR converts standardized scores to empirical one-sided
	// p-values against the null sample and applies Benjamini-Hochberg FDR
	// control. This is the default.
	PolicyFDR SignificancePolicy = "fdr"

	// PolicyZThreshold marks a candidate important when its robust z-score
	// exceeds a fixed threshold.
	PolicyZThreshold SignificancePolicy = "z-threshold"
)

// Options configures one analysis call.
type Options struct {
	// K is the candidate window size: candidates are drawn from the last K
	// history items (default: 8).
	K int

	// HalfLifeTurns is the recency half-life in turns: a candidate K turns
	// old is discounted by 2^-(age/HalfLifeTurns) (default: 30).
	HalfLifeTurns int

	// NullSamples is the minimum size of the pooled null sample set. The
	// effective minimum is max(NullSamples, 3 x candidate count) to keep
	// statistical power on short windows (default: 12).
	NullSamples int

	// Policy selects the significance decision (default: PolicyFDR).
	Policy SignificancePolicy

	// FDRAlpha is the false discovery rate under PolicyFDR (default: 0.1).
	FDRAlpha float64

	// ZThreshold is the robust z cutoff under PolicyZThreshold
	// (default: 1.28).
	ZThreshold float64

	// AlphaMix is the weight on the counterfactual loss delta when the
	// oracle supplies a secondary surprisal signal; the blend is
	// AlphaMix*delta + (1-AlphaMix)*surprisal (default: 0.6).
	AlphaMix float64

	// MMRLambda balances relevance against diversity during anchor
	// promotion; 1.0 is pure relevance (default: 0.7).
	MMRLambda float64

	// AnchorBoost scales the similarity boost each qualifying anchor adds
	// to every candidate's score (default: 0.2).
	AnchorBoost float64

	// AnchorTopN is how many anchors to consult and at most promote
	// (default: 5).
	AnchorTopN int

	// MinAnchorSimilarity is the cosine similarity an anchor must reach
	// against the current turn before it contributes a boost
	// (default: 0.5).
	MinAnchorSimilarity float64

	// Seed seeds the null-sample permutation source. Zero means derive a
	// seed from the clock; set it explicitly for reproducible runs.
	Seed int64
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		K:                   8,
		HalfLifeTurns:       30,
		NullSamples:         12,
		Policy:              PolicyFDR,
		FDRAlpha:            0.1,
		ZThreshold:          1.28,
		AlphaMix:            0.6,
		MMRLambda:           0.7,
		AnchorBoost:         0.2,
		AnchorTopN:          5,
		MinAnchorSimilarity: 0.5,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.K < 1 {
		return fmt.Errorf("K must be >= 1, got %d", o.K)
	}
	if o.NullSamples < 1 {
		return fmt.Errorf("NullSamples must be >= 1, got %d", o.NullSamples)
	}
	switch o.Policy {
	case PolicyFDR, PolicyZThreshold:
	default:
		return fmt.Errorf("unknown significance policy: %q", o.Policy)
	}
	if o.FDRAlpha <= 0 || o.FDRAlpha >= 1 {
		return fmt.Errorf("FDRAlpha must be in (0, 1), got %g", o.FDRAlpha)
	}
	if o.AlphaMix < 0 || o.AlphaMix > 1 {
		return fmt.Errorf("AlphaMix must be in [0, 1], got %g", o.AlphaMix)
	}
	if o.MMRLambda < 0 || o.MMRLambda > 1 {
		return fmt.Errorf("MMRLambda must be in [0, 1], got %g", o.MMRLambda)
	}
	return nil
}
