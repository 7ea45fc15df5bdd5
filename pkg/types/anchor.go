package types

import "time"

// Anchor is a durable record of a previously confirmed important utterance.
// Anchors live in a bounded, score-ordered memory that can outlive the full
// dialogue buffer, so they carry their own identity rather than referencing
// an Utterance.
type Anchor struct {
	ID    string  `json:"id"`    // Stable identifier (UUID)
	Text  string  `json:"text"`  // Utterance text at promotion time
	Score float64 `json:"score"` // FinalScore at promotion time

	// Timestamp is when the underlying utterance was spoken, if known.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Topic is an optional caller-supplied topic label.
	Topic string `json:"topic,omitempty"`

	// Embedding is the anchor text's embedding vector, stored so that
	// similarity boosts do not re-embed on every call. May be empty;
	// consumers fall back to embedding Text on demand.
	Embedding []float32 `json:"embedding,omitempty"`
}
