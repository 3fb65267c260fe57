package knowledge

import (
	"testing"
)

func TestCollectionName(t *testing.T) {
	if got := collectionName("abc123"); got != "session_abc123" {
		t.Errorf("collectionName = %q, want %q", got, "session_abc123")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMMRPicksMostRelevantFirst(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},   // orthogonal to query
		{1, 0},   // identical to query
		{0.7, 0.7},
	}

	selected := maximalMarginalRelevance(query, candidates, mmrLambda, 1)
	if len(selected) != 1 || selected[0] != 1 {
		t.Errorf("selected = %v, want [1]", selected)
	}
}

func TestMMRPrefersDiversity(t *testing.T) {
	query := []float32{1, 0.3}
	candidates := [][]float32{
		{1, 0},       // best match
		{1, 0},       // duplicate of the best match
		{0.7, 0.7},   // less relevant but diverse
	}

	selected := maximalMarginalRelevance(query, candidates, mmrLambda, 2)
	if len(selected) != 2 {
		t.Fatalf("got %d selections, want 2", len(selected))
	}
	if selected[0] != 0 {
		t.Errorf("first selection = %d, want 0", selected[0])
	}
	if selected[1] != 2 {
		t.Errorf("second selection = %d, want the diverse candidate 2", selected[1])
	}
}

func TestMMRBounds(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}}

	if got := maximalMarginalRelevance(query, candidates, mmrLambda, 0); got != nil {
		t.Errorf("k=0 should select nothing, got %v", got)
	}
	if got := maximalMarginalRelevance(query, nil, mmrLambda, 3); got != nil {
		t.Errorf("no candidates should select nothing, got %v", got)
	}
	if got := maximalMarginalRelevance(query, candidates, mmrLambda, 10); len(got) != 2 {
		t.Errorf("k beyond candidate count should select all, got %v", got)
	}
}
