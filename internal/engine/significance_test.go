package engine

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/pkg/types"
)

func scoredWithFinals(finals ...float64) []types.ScoredUtterance {
	scored := make([]types.ScoredUtterance, len(finals))
	for i, f := range finals {
		scored[i] = types.ScoredUtterance{
			Utterance: types.Utterance{ID: int64(i + 1), Text: "t"},
			Detail:    types.ScoreDetail{FinalScore: f},
		}
	}
	return scored
}

func TestApplySignificance_EmptyNullMarksNothing(t *testing.T) {
	scored := scoredWithFinals(5, 10, 100)
	flags := applySignificance(scored, nil, DefaultOptions())

	require.Len(t, flags, 3)
	for _, f := range flags {
		assert.False(t, f, "no reference distribution, no significance claim")
	}
}

func TestApplySignificance_ZThresholdFlagsOutlier(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = PolicyZThreshold

	scored := scoredWithFinals(0, 0, 0, 1.0)
	null := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	flags := applySignificance(scored, null, opts)
	assert.Equal(t, []bool{false, false, false, true}, flags)
}

func TestApplySignificance_AnnotatesZScores(t *testing.T) {
	scored := scoredWithFinals(0, 0.5, 1.0)
	null := []float64{0, 0.1, 0.2, 0.1, 0, 0.05}

	_ = applySignificance(scored, null, DefaultOptions())

	for i := range scored {
		require.NotNil(t, scored[i].Detail.ZScore)
		require.NotNil(t, scored[i].Detail.PValue)
	}
	assert.Greater(t, *scored[2].Detail.ZScore, *scored[0].Detail.ZScore)
	assert.Less(t, *scored[2].Detail.PValue, 1.0)
}

func TestApplySignificance_FDRNeedsExtremeObservations(t *testing.T) {
	// Observed values sitting inside the null distribution must survive
	// multiple-comparison control.
	scored := scoredWithFinals(0.1, 0.15, 0.05)
	null := []float64{0, 0.05, 0.1, 0.15, 0.2, 0.05, 0.1, 0.15, 0, 0.2, 0.1, 0.05}

	flags := applySignificance(scored, null, DefaultOptions())
	for _, f := range flags {
		assert.False(t, f)
	}
}

// orderedOracle is a minimal deterministic oracle for exercising the null
// sampler directly.
type orderedOracle struct{}

func (orderedOracle) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (orderedOracle) LossWithHistory(_ context.Context, history []string, _ string) (float64, error) {
	if len(history) > 0 && strings.Contains(history[len(history)-1], "key") {
		return 0.2, nil
	}
	return 1.0, nil
}

func (o orderedOracle) MaskedLoss(ctx context.Context, history []string, current string, masked int) (float64, error) {
	kept := make([]string, 0, len(history)-1)
	for i, h := range history {
		if i != masked {
			kept = append(kept, h)
		}
	}
	return o.LossWithHistory(ctx, kept, current)
}

func TestSampleNull_PooledSizeMeetsTarget(t *testing.T) {
	texts := []string{"a", "b key", "c", "d", "e", "f"}
	opts := DefaultOptions()
	opts.K = 4
	opts.NullSamples = 10

	// Target is max(NullSamples, 3*numCandidates) = 12, per-rep sample is
	// min(K, len) = 4, so 3 repetitions pool exactly 12 deltas.
	pooled, err := sampleNull(context.Background(), orderedOracle{}, texts, "q", 4, opts, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, pooled, 12)
}

func TestSampleNull_DeterministicForSeed(t *testing.T) {
	texts := []string{"a", "b key", "c", "d", "e"}
	opts := DefaultOptions()

	first, err := sampleNull(context.Background(), orderedOracle{}, texts, "q", 3, opts, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	second, err := sampleNull(context.Background(), orderedOracle{}, texts, "q", 3, opts, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSampleNull_EmptyHistory(t *testing.T) {
	pooled, err := sampleNull(context.Background(), orderedOracle{}, nil, "q", 0, DefaultOptions(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, pooled)
}
