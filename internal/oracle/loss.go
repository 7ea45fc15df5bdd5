package oracle

import "github.com/scrypster/salient/internal/stats"

// similarityLoss is the embedding-based predictability proxy shared by the
// oracle implementations: the loss of predicting the current turn from a
// history is 1 minus the best cosine similarity between the current turn's
// embedding and any history embedding. Range [0, 2]; an empty history is
// maximally unpredictable and yields MaxLoss.
func similarityLoss(current []float32, history [][]float32) float64 {
	if len(history) == 0 {
		return MaxLoss
	}
	best := -1.0
	for _, h := range history {
		if sim := stats.Cosine(current, h); sim > best {
			best = sim
		}
	}
	return 1 - best
}
