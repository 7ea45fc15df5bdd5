package oracle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/internal/oracle"
)

func TestLocalOracle_EmbedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	first, err := orc.Embed(ctx, "the project budget is 40k")
	require.NoError(t, err)
	second, err := orc.Embed(ctx, "the project budget is 40k")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// A fresh instance produces the same vector for the same text.
	other, err := oracle.NewLocalOracle().Embed(ctx, "the project budget is 40k")
	require.NoError(t, err)
	assert.Equal(t, first, other)
}

func TestLocalOracle_EmbedIsUnitLength(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	vec, err := orc.Embed(ctx, "hello there, general conversation")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestLocalOracle_IdenticalTextIsPerfectlyPredictable(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	loss, err := orc.LossWithHistory(ctx, []string{"exactly the same sentence"}, "exactly the same sentence")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, loss, 1e-6)
}

func TestLocalOracle_EmptyHistoryYieldsMaxLoss(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	loss, err := orc.LossWithHistory(ctx, nil, "anything")
	require.NoError(t, err)
	assert.Equal(t, oracle.MaxLoss, loss)
}

func TestLocalOracle_MaskedLossBounds(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()
	history := []string{"alpha beta gamma", "delta epsilon"}

	_, err := orc.MaskedLoss(ctx, history, "query", -1)
	assert.ErrorIs(t, err, oracle.ErrMaskOutOfRange)

	_, err = orc.MaskedLoss(ctx, history, "query", 2)
	assert.ErrorIs(t, err, oracle.ErrMaskOutOfRange)

	loss, err := orc.MaskedLoss(ctx, history, "query", 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss, 0.0)
	assert.LessOrEqual(t, loss, oracle.MaxLoss)
}

func TestLocalOracle_MaskingTheOnlyItemYieldsMaxLoss(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	loss, err := orc.MaskedLoss(ctx, []string{"sole history entry"}, "query", 0)
	require.NoError(t, err)
	assert.Equal(t, oracle.MaxLoss, loss)
}

func TestLocalOracle_MaskingRelevantItemRaisesLoss(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	history := []string{
		"the quarterly project budget is forty thousand",
		"完全に無関係な話題です",
	}
	current := "what is the quarterly project budget"

	base, err := orc.LossWithHistory(ctx, history, current)
	require.NoError(t, err)
	masked, err := orc.MaskedLoss(ctx, history, current, 0)
	require.NoError(t, err)

	assert.Greater(t, masked, base,
		"removing the overlapping utterance must make prediction harder")
}

func TestLocalOracle_Surprisal(t *testing.T) {
	ctx := context.Background()
	orc := oracle.NewLocalOracle()

	repetitive, err := orc.Surprisal(ctx, "aaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	diverse, err := orc.Surprisal(ctx, "quick brown fox jumps over 12 lazy dogs!")
	require.NoError(t, err)

	assert.Greater(t, diverse, repetitive)
	assert.GreaterOrEqual(t, repetitive, 0.0)
	assert.LessOrEqual(t, diverse, 1.0)

	empty, err := orc.Surprisal(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, empty)
}
