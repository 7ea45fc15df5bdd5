package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/internal/storage/sqlite"
	"github.com/scrypster/salient/pkg/types"
)

func openTestStore(t *testing.T, capacity int) *sqlite.AnchorStore {
	t.Helper()
	store, err := sqlite.NewAnchorStore(filepath.Join(t.TempDir(), "anchors.db"), capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewAnchorStore_ValidatesInput(t *testing.T) {
	_, err := sqlite.NewAnchorStore("", 5)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = sqlite.NewAnchorStore(filepath.Join(t.TempDir(), "a.db"), 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAnchorStore_AddAndReadBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 10)

	spokenAt := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	anchor := types.Anchor{
		ID:        "anchor-1",
		Text:      "the project budget is 40k",
		Score:     0.83,
		Topic:     "finance",
		Timestamp: &spokenAt,
		Embedding: []float32{0.1, -0.2, 0.3},
	}
	require.NoError(t, store.Add(ctx, anchor))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, anchor.ID, got.ID)
	assert.Equal(t, anchor.Text, got.Text)
	assert.Equal(t, anchor.Score, got.Score)
	assert.Equal(t, anchor.Topic, got.Topic)
	assert.Equal(t, anchor.Embedding, got.Embedding)
	require.NotNil(t, got.Timestamp)
	assert.True(t, spokenAt.Equal(*got.Timestamp))
}

func TestAnchorStore_AddValidatesAnchor(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 10)

	err := store.Add(ctx, types.Anchor{Text: "no id"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Add(ctx, types.Anchor{ID: "no-text"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAnchorStore_UpsertsByID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 10)

	require.NoError(t, store.Add(ctx, types.Anchor{ID: "a", Text: "first", Score: 0.1}))
	require.NoError(t, store.Add(ctx, types.Anchor{ID: "a", Text: "second", Score: 0.9}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", all[0].Text)
	assert.Equal(t, 0.9, all[0].Score)
}

func TestAnchorStore_EnforcesCapacity(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 3)

	scores := []float64{0.5, 0.1, 0.9, 0.3, 0.7}
	for i, score := range scores {
		require.NoError(t, store.Add(ctx, types.Anchor{
			ID:    string(rune('a' + i)),
			Text:  "anchor",
			Score: score,
		}))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 0.9, all[0].Score)
	assert.Equal(t, 0.7, all[1].Score)
	assert.Equal(t, 0.5, all[2].Score)
}

func TestAnchorStore_TopLimitsAndOrders(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 10)

	for i, score := range []float64{0.2, 0.8, 0.5} {
		require.NoError(t, store.Add(ctx, types.Anchor{
			ID:    string(rune('a' + i)),
			Text:  "anchor",
			Score: score,
		}))
	}

	top, err := store.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 0.8, top[0].Score)
	assert.Equal(t, 0.5, top[1].Score)

	none, err := store.Top(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAnchorStore_NilTimestampAndEmbedding(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 10)

	require.NoError(t, store.Add(ctx, types.Anchor{ID: "bare", Text: "minimal anchor", Score: 0.4}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Timestamp)
	assert.Nil(t, all[0].Embedding)
}

func TestAnchorStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "anchors.db")

	store, err := sqlite.NewAnchorStore(path, 10)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, types.Anchor{ID: "durable", Text: "keep me", Score: 0.6}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.NewAnchorStore(path, 10)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
