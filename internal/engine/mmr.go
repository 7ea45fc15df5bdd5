package engine

import "github.com/scrypster/salient/internal/stats"

// SelectDiverse greedily picks up to k items balancing relevance against
// diversity (Maximal Marginal Relevance). At each step it chooses the
// unchosen index maximizing
//
//	lambda*relevance[i] - (1-lambda)*max(cosine(vectors[i], chosen))
//
// The first pick is always the single highest-relevance item, since the
// similarity term is vacuous with nothing chosen yet. Returns the chosen
// indices in pick order; ties break toward the lower index so selection is
// deterministic.
func SelectDiverse(relevance []float64, vectors [][]float32, k int, lambda float64) []int {
	n := len(relevance)
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}

	chosen := make([]int, 0, k)
	used := make([]bool, n)

	for len(chosen) < k {
		best := -1
		bestScore := 0.0
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}

			maxSim := 0.0
			for _, c := range chosen {
				if sim := stats.Cosine(vectors[i], vectors[c]); sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		chosen = append(chosen, best)
		used[best] = true
	}
	return chosen
}
