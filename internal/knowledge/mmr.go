package knowledge

import "math"

// mmrLambda balances relevance against diversity when re-ranking. 0.5 gives
// both equal weight.
const mmrLambda = 0.5

// maximalMarginalRelevance greedily selects up to k candidate indices,
// trading off similarity to the query against similarity to the candidates
// already picked.
func maximalMarginalRelevance(query []float32, candidates [][]float32, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	queryScores := make([]float64, len(candidates))
	for i, c := range candidates {
		queryScores[i] = cosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	remaining := make(map[int]struct{}, len(candidates))
	for i := range candidates {
		remaining[i] = struct{}{}
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range remaining {
			redundancy := math.Inf(-1)
			for _, s := range selected {
				if sim := cosineSimilarity(candidates[i], candidates[s]); sim > redundancy {
					redundancy = sim
				}
			}
			if len(selected) == 0 {
				redundancy = 0
			}

			score := lambda*queryScores[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		selected = append(selected, best)
		delete(remaining, best)
	}

	return selected
}

// cosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
