package engine

import (
	"context"
	"sync"

	"github.com/scrypster/salient/internal/oracle"
	"github.com/scrypster/salient/pkg/types"
)

// scoreCandidates computes the per-candidate score breakdown for the
// trailing candidate window. texts is the full history as raw strings and
// candidates its trailing window; the two must stay aligned.
//
// Masked-loss calls are mutually independent, so they fan out one goroutine
// per candidate and join before returning. Each goroutine writes only its
// own slot. The first oracle failure aborts the whole scoring pass.
func scoreCandidates(ctx context.Context, orc oracle.Oracle, texts []string, candidates []types.Utterance, current types.Utterance, baseLoss float64, opts Options) ([]types.ScoredUtterance, error) {
	n := len(candidates)
	scored := make([]types.ScoredUtterance, n)
	errs := make([]error, n)

	// History index of candidates[0].
	offset := len(texts) - n

	// The surprisal blend is an optional oracle capability.
	estimator, hasSurprisal := orc.(oracle.SurprisalEstimator)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			histIdx := offset + i
			masked, err := orc.MaskedLoss(ctx, texts, current.Text, histIdx)
			if err != nil {
				errs[i] = err
				return
			}

			delta := masked - baseLoss
			age := len(texts) - 1 - histIdx
			weight := AgeWeight(age, opts.HalfLifeTurns)

			raw := delta
			if hasSurprisal {
				surprisal, err := estimator.Surprisal(ctx, candidates[i].Text)
				if err != nil {
					errs[i] = err
					return
				}
				raw = opts.AlphaMix*delta + (1-opts.AlphaMix)*surprisal
			}

			scored[i] = types.ScoredUtterance{
				Utterance: candidates[i],
				Detail: types.ScoreDetail{
					BaseLoss:   baseLoss,
					MaskedLoss: masked,
					DeltaLoss:  delta,
					AgeWeight:  weight,
					RawScore:   raw,
					FinalScore: raw * weight,
				},
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scored, nil
}
