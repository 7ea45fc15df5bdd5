// Package types defines the core data structures for the Salient scoring
// engine. These types represent dialogue turns, per-candidate score
// breakdowns, and analysis results. All of them serialize losslessly to JSON
// so that a surrounding request/response layer can carry them across process
// boundaries.
package types

import (
	"errors"
	"time"
)

// Utterance is one turn of dialogue. The ID is an ordinal assigned by the
// caller's conversation log; recency distance between two utterances is the
// difference of their positions in history, not of the IDs themselves.
// Utterances are immutable once created.
type Utterance struct {
	ID        int64     `json:"id"`        // Ordinal identifier, unique within a conversation
	Text      string    `json:"text"`      // Raw utterance text
	Timestamp time.Time `json:"timestamp"` // When the utterance was spoken
	Speaker   string    `json:"speaker"`   // Speaker label (display name or participant ID)
}

// Validate checks that the utterance carries the fields the engine relies on.
func (u *Utterance) Validate() error {
	if u.Text == "" {
		return errors.New("utterance text is required")
	}
	return nil
}

// ScoreDetail is the full per-candidate score breakdown. It is a pure
// computed value with no identity; a fresh one is produced on every analysis
// call and never mutated afterward.
type ScoreDetail struct {
	// BaseLoss is the predictive-difficulty estimate for the current turn
	// given the full history.
	BaseLoss float64 `json:"base_loss"`

	// MaskedLoss is the same estimate with this candidate removed from the
	// conditioning history.
	MaskedLoss float64 `json:"masked_loss"`

	// DeltaLoss is MaskedLoss - BaseLoss. Positive means removing the
	// candidate made the current turn harder to predict, i.e. the candidate
	// carried information.
	DeltaLoss float64 `json:"delta_loss"`

	// AgeWeight is the exponential half-life recency discount in (0, 1].
	AgeWeight float64 `json:"age_weight"`

	// RawScore is DeltaLoss, or an alphaMix blend of DeltaLoss and a
	// secondary surprisal signal when the oracle supplies one.
	RawScore float64 `json:"raw_score"`

	// FinalScore is RawScore x AgeWeight, plus any anchor similarity boost.
	FinalScore float64 `json:"final_score"`

	// PValue is the one-sided empirical p-value against the null
	// distribution. Only set under the FDR significance policy.
	PValue *float64 `json:"p_value,omitempty"`

	// ZScore is the robust (median/MAD) standardized score. Set whenever a
	// non-empty null sample set was available.
	ZScore *float64 `json:"z_score,omitempty"`
}

// ScoredUtterance pairs an utterance with its rank and score breakdown.
// Rank is 1-based and dense: the scored list of an analysis always carries
// ranks 1..N with rank 1 holding the maximum FinalScore.
type ScoredUtterance struct {
	Utterance Utterance   `json:"utterance"`
	Rank      int         `json:"rank"`
	Detail    ScoreDetail `json:"detail"`
}

// AnalyzeResult is the output of one analysis call.
type AnalyzeResult struct {
	// Scored holds every candidate, sorted descending by FinalScore.
	Scored []ScoredUtterance `json:"scored"`

	// Important is the subset of Scored that passed the significance
	// policy, in the same order as Scored.
	Important []ScoredUtterance `json:"important"`

	// NullScores is the pooled null sample set (raw loss deltas from
	// reshuffled history) the significance decision was made against.
	NullScores []float64 `json:"null_scores"`

	// AnchorCount is the number of anchors consulted. Zero for plain
	// Analyze calls.
	AnchorCount int `json:"anchor_count,omitempty"`
}
