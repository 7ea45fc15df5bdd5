package engine

import (
	"context"
	"math/rand"
	"sync"

	"github.com/scrypster/salient/internal/oracle"
)

// sampleNull builds the empirical null distribution for the hypothesis
// "no utterance in this window carries information beyond random
// positioning". Each repetition randomly permutes the full history,
// recomputes the base loss on the permuted sequence, and pools the masked
// loss deltas of a trailing sample of size min(K, len(history)).
//
// The pooled set is sized to at least max(opts.NullSamples,
// 3 x numCandidates) so short windows keep statistical power.
//
// Repetitions are independent and run concurrently. Determinism: every
// repetition gets its own seed drawn from rng up front and writes into its
// own slot, so the flattened output does not depend on goroutine
// scheduling.
func sampleNull(ctx context.Context, orc oracle.Oracle, texts []string, current string, numCandidates int, opts Options, rng *rand.Rand) ([]float64, error) {
	n := len(texts)
	if n == 0 {
		return []float64{}, nil
	}

	perRep := opts.K
	if n < perRep {
		perRep = n
	}

	target := opts.NullSamples
	if min := numCandidates * 3; min > target {
		target = min
	}
	reps := (target + perRep - 1) / perRep

	// Draw all repetition seeds on the caller's goroutine.
	seeds := make([]int64, reps)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	samples := make([][]float64, reps)
	errs := make([]error, reps)

	var wg sync.WaitGroup
	for r := 0; r < reps; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			samples[r], errs[r] = nullRepetition(ctx, orc, texts, current, perRep, seeds[r])
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	pooled := make([]float64, 0, reps*perRep)
	for _, s := range samples {
		pooled = append(pooled, s...)
	}
	return pooled, nil
}

// nullRepetition performs one shuffle-and-rescore pass and returns the loss
// deltas of the trailing sample.
func nullRepetition(ctx context.Context, orc oracle.Oracle, texts []string, current string, sampleSize int, seed int64) ([]float64, error) {
	rng := rand.New(rand.NewSource(seed))

	permuted := make([]string, len(texts))
	for i, j := range rng.Perm(len(texts)) {
		permuted[i] = texts[j]
	}

	permBase, err := orc.LossWithHistory(ctx, permuted, current)
	if err != nil {
		return nil, err
	}

	deltas := make([]float64, 0, sampleSize)
	for i := len(permuted) - sampleSize; i < len(permuted); i++ {
		masked, err := orc.MaskedLoss(ctx, permuted, current, i)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, masked-permBase)
	}
	return deltas, nil
}
