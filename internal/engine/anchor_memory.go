package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/pkg/types"
)

// AnchorMemory is the in-process implementation of storage.AnchorStore: a
// bounded, score-sorted collection of confirmed important utterances.
// Capacity and descending score order are re-established on every Add.
//
// The engine assumes single-writer access per session; the mutex makes the
// store additionally safe against concurrent readers.
type AnchorMemory struct {
	mu       sync.RWMutex
	capacity int
	anchors  []types.Anchor
}

// NewAnchorMemory creates an anchor memory with the given capacity.
// Capacities below 1 are raised to 1.
func NewAnchorMemory(capacity int) *AnchorMemory {
	if capacity < 1 {
		capacity = 1
	}
	return &AnchorMemory{capacity: capacity}
}

// Add appends the anchor, re-sorts descending by score, and truncates to
// capacity, dropping the lowest-scored entries.
func (m *AnchorMemory) Add(_ context.Context, anchor types.Anchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.anchors = append(m.anchors, anchor)
	sort.SliceStable(m.anchors, func(i, j int) bool {
		if m.anchors[i].Score != m.anchors[j].Score {
			return m.anchors[i].Score > m.anchors[j].Score
		}
		return m.anchors[i].ID < m.anchors[j].ID
	})
	if len(m.anchors) > m.capacity {
		m.anchors = m.anchors[:m.capacity]
	}
	return nil
}

// Top returns the n highest-scored anchors.
func (m *AnchorMemory) Top(_ context.Context, n int) ([]types.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.anchors) {
		n = len(m.anchors)
	}
	if n <= 0 {
		return []types.Anchor{}, nil
	}
	out := make([]types.Anchor, n)
	copy(out, m.anchors[:n])
	return out, nil
}

// All returns a defensive copy of the full, already-sorted contents.
func (m *AnchorMemory) All(_ context.Context) ([]types.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Anchor, len(m.anchors))
	copy(out, m.anchors)
	return out, nil
}

// Count returns the number of stored anchors.
func (m *AnchorMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.anchors), nil
}

// Close is a no-op for the in-process store.
func (m *AnchorMemory) Close() error {
	return nil
}

// Compile-time assertion.
var _ storage.AnchorStore = (*AnchorMemory)(nil)
