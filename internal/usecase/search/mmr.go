package search

import (
	"math"

	"github.com/corvus-cloud/vecgate/internal/domain"
)

// DefaultLambda balances relevance and diversity when no multiplier is given.
const DefaultLambda = 0.5

// DefaultFetchK is how many candidates to over-fetch before reranking.
const DefaultFetchK = 20

// maximalMarginalRelevance greedily selects up to k candidate indices,
// trading query similarity against similarity to already-selected candidates.
// Ties resolve to the lowest index. Returns indices in selection order.
func maximalMarginalRelevance(queryVec []float32, candidates [][]float32, lambda float64, k int) ([]int, error) {
	if k <= 0 || len(candidates) == 0 {
		return nil, nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	simToQuery := make([]float64, len(candidates))
	for i, c := range candidates {
		sim, err := cosineSimilarity(queryVec, c)
		if err != nil {
			return nil, err
		}
		simToQuery[i] = sim
	}

	selected := make([]int, 0, k)
	picked := make([]bool, len(candidates))

	// maxSimToSelected[i] tracks the best similarity between candidate i and
	// any already-selected candidate, updated incrementally per pick.
	maxSimToSelected := make([]float64, len(candidates))
	for i := range maxSimToSelected {
		maxSimToSelected[i] = math.Inf(-1)
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if picked[i] {
				continue
			}
			score := simToQuery[i]
			if len(selected) > 0 {
				score = lambda*simToQuery[i] - (1-lambda)*maxSimToSelected[i]
			}
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}

		picked[best] = true
		selected = append(selected, best)

		for i := range candidates {
			if picked[i] {
				continue
			}
			sim, err := cosineSimilarity(candidates[best], candidates[i])
			if err != nil {
				return nil, err
			}
			if sim > maxSimToSelected[i] {
				maxSimToSelected[i] = sim
			}
		}
	}

	return selected, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// A zero vector on either side yields 0.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
