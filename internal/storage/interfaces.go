// Package storage defines the anchor persistence contract for the Salient
// engine. Anchor memory is a bounded, score-ordered store of confirmed
// important utterances; implementations must enforce the capacity and sort
// order invariants on every mutation, not just on read.
package storage

import (
	"context"
	"errors"

	"github.com/scrypster/salient/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// AnchorStore is a bounded collection of anchors ordered by descending
// score. Adding beyond capacity evicts the lowest-scored entries; eviction
// is the only destruction path.
//
// The engine assumes single-writer access per conversation session. Callers
// running concurrent analyses over one session must serialize mutations.
type AnchorStore interface {
	// Add inserts an anchor, re-establishes descending score order, and
	// truncates to capacity.
	Add(ctx context.Context, anchor types.Anchor) error

	// Top returns the n highest-scored anchors (fewer when the store holds
	// fewer).
	Top(ctx context.Context, n int) ([]types.Anchor, error)

	// All returns a defensive copy of the full contents, sorted descending
	// by score.
	All(ctx context.Context) ([]types.Anchor, error)

	// Count returns the number of stored anchors.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// SimilaritySearcher is an optional capability a store may implement when
// its backend can rank anchors by embedding distance (e.g. pgvector).
type SimilaritySearcher interface {
	// TopSimilar returns up to n anchors nearest to the query vector by
	// cosine distance.
	TopSimilar(ctx context.Context, query []float32, n int) ([]types.Anchor, error)
}
