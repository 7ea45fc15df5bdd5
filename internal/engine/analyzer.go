package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/salient/internal/oracle"
	"github.com/scrypster/salient/internal/stats"
	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/pkg/types"
)

// ErrUnknownCandidate indicates that a result references an utterance that
// is not part of the working candidate set. This is caller misuse, not a
// recoverable runtime condition, so it fails loudly.
var ErrUnknownCandidate = errors.New("candidate not present in working utterance set")

// Analyze scores the trailing candidate window of history against the
// current utterance and decides which candidates are statistically
// important.
//
// Steps: base loss over the full history; counterfactual scoring of the
// last-K candidates and null-sample generation over reshuffled history
// (two independent branches, run concurrently); joint robust-z
// standardization; the configured significance policy; dense 1..N ranking
// by descending final score.
//
// Each call is a pure function of its inputs: with a deterministic oracle
// and a non-zero opts.Seed, two calls with identical inputs produce
// identical results. Fallbacks instead of errors: an empty current text or
// empty history yields an empty result.
func Analyze(ctx context.Context, orc oracle.Oracle, history []types.Utterance, current types.Utterance, opts Options) (*types.AnalyzeResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &types.AnalyzeResult{
		Scored:     []types.ScoredUtterance{},
		Important:  []types.ScoredUtterance{},
		NullScores: []float64{},
	}
	if current.Text == "" || len(history) == 0 {
		return result, nil
	}

	texts := make([]string, len(history))
	for i, u := range history {
		texts[i] = u.Text
	}

	baseLoss, err := orc.LossWithHistory(ctx, texts, current.Text)
	if err != nil {
		return nil, fmt.Errorf("base loss failed: %w", err)
	}

	start := len(history) - opts.K
	if start < 0 {
		start = 0
	}
	candidates := history[start:]

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Scoring and null sampling are independent branches; fan them out and
	// join before standardization.
	var (
		wg         sync.WaitGroup
		scored     []types.ScoredUtterance
		nullScores []float64
		scoreErr   error
		nullErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		scored, scoreErr = scoreCandidates(ctx, orc, texts, candidates, current, baseLoss, opts)
	}()
	go func() {
		defer wg.Done()
		nullScores, nullErr = sampleNull(ctx, orc, texts, current.Text, len(candidates), opts, rng)
	}()
	wg.Wait()

	if scoreErr != nil {
		return nil, fmt.Errorf("candidate scoring failed: %w", scoreErr)
	}
	if nullErr != nil {
		return nil, fmt.Errorf("null sampling failed: %w", nullErr)
	}

	flags := applySignificance(scored, nullScores, opts)

	rankAndPartition(scored, flags, result)
	result.NullScores = nullScores
	return result, nil
}

// rankAndPartition sorts scored descending by final score, assigns dense
// 1..N ranks, and fills result.Scored/result.Important. flags must be
// aligned with the incoming (pre-sort) order of scored.
func rankAndPartition(scored []types.ScoredUtterance, flags []bool, result *types.AnalyzeResult) {
	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scored[order[a]], scored[order[b]]
		if sa.Detail.FinalScore != sb.Detail.FinalScore {
			return sa.Detail.FinalScore > sb.Detail.FinalScore
		}
		// Equal scores: prefer the more recent utterance.
		return sa.Utterance.ID > sb.Utterance.ID
	})

	result.Scored = make([]types.ScoredUtterance, 0, len(scored))
	result.Important = result.Important[:0]
	for rank, idx := range order {
		s := scored[idx]
		s.Rank = rank + 1
		result.Scored = append(result.Scored, s)
		if flags[idx] {
			result.Important = append(result.Important, s)
		}
	}
}

// AnalyzeWithAnchors runs Analyze and then boosts candidates by their
// resemblance to long-term anchors: each consulted anchor whose cosine
// similarity to the current turn exceeds the configured minimum adds
// AnchorBoost x similarity to every candidate's final score, after which
// the scored list is re-sorted and re-ranked.
//
// When the store can search by embedding distance (pgvector), the top
// anchors are fetched by similarity to the current turn; otherwise by
// score.
func AnalyzeWithAnchors(ctx context.Context, orc oracle.Oracle, history []types.Utterance, current types.Utterance, store storage.AnchorStore, opts Options) (*types.AnalyzeResult, error) {
	result, err := Analyze(ctx, orc, history, current, opts)
	if err != nil {
		return nil, err
	}
	if store == nil || current.Text == "" {
		return result, nil
	}

	curVec, err := orc.Embed(ctx, current.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding current turn failed: %w", err)
	}

	var anchors []types.Anchor
	if searcher, ok := store.(storage.SimilaritySearcher); ok {
		anchors, err = searcher.TopSimilar(ctx, curVec, opts.AnchorTopN)
	} else {
		anchors, err = store.Top(ctx, opts.AnchorTopN)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching anchors failed: %w", err)
	}

	result.AnchorCount = len(anchors)
	if len(anchors) == 0 || len(result.Scored) == 0 {
		return result, nil
	}

	var boost float64
	for _, anchor := range anchors {
		vec := anchor.Embedding
		if len(vec) == 0 {
			vec, err = orc.Embed(ctx, anchor.Text)
			if err != nil {
				return nil, fmt.Errorf("embedding anchor failed: %w", err)
			}
		}
		if sim := stats.Cosine(curVec, vec); sim > opts.MinAnchorSimilarity {
			boost += opts.AnchorBoost * sim
		}
	}
	if boost == 0 {
		return result, nil
	}

	importantIDs := make(map[int64]bool, len(result.Important))
	for _, s := range result.Important {
		importantIDs[s.Utterance.ID] = true
	}

	flags := make([]bool, len(result.Scored))
	for i := range result.Scored {
		result.Scored[i].Detail.FinalScore += boost
		if importantIDs[result.Scored[i].Utterance.ID] {
			flags[i] = true
			delete(importantIDs, result.Scored[i].Utterance.ID)
		}
	}
	if len(importantIDs) != 0 {
		return nil, fmt.Errorf("%w: %d important entries missing from scored set", ErrUnknownCandidate, len(importantIDs))
	}

	rankAndPartition(result.Scored, flags, result)
	return result, nil
}

// PromoteAnchors persists a diversified subset of a result's important
// utterances into the anchor store, at most opts.AnchorTopN of them,
// selected by MMR over their embeddings so near-duplicate confirmations do
// not crowd the bounded memory. Returns the number of anchors added.
func PromoteAnchors(ctx context.Context, orc oracle.Oracle, result *types.AnalyzeResult, store storage.AnchorStore, opts Options) (int, error) {
	if result == nil || len(result.Important) == 0 {
		return 0, nil
	}

	relevance := make([]float64, len(result.Important))
	vectors := make([][]float32, len(result.Important))
	for i, s := range result.Important {
		relevance[i] = s.Detail.FinalScore
		vec, err := orc.Embed(ctx, s.Utterance.Text)
		if err != nil {
			return 0, fmt.Errorf("embedding important utterance failed: %w", err)
		}
		vectors[i] = vec
	}

	chosen := SelectDiverse(relevance, vectors, opts.AnchorTopN, opts.MMRLambda)

	added := 0
	for _, idx := range chosen {
		s := result.Important[idx]
		anchor := types.Anchor{
			ID:        uuid.NewString(),
			Text:      s.Utterance.Text,
			Score:     s.Detail.FinalScore,
			Embedding: vectors[idx],
		}
		if !s.Utterance.Timestamp.IsZero() {
			t := s.Utterance.Timestamp
			anchor.Timestamp = &t
		}
		if err := store.Add(ctx, anchor); err != nil {
			return added, fmt.Errorf("storing anchor failed: %w", err)
		}
		added++
	}
	return added, nil
}
