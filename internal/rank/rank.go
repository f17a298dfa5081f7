// Package rank orders chunk embeddings by similarity to a query embedding.
package rank

import (
	"math"
	"sort"
)

// Result is a scored reference to one input vector.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Cosine returns the cosine similarity of a and b, or 0 when it is undefined.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK scores every vector against query and returns the k best, highest first.
// Equal scores keep input order. k <= 0 returns all results.
func TopK(query []float64, vectors [][]float64, k int) []Result {
	results := make([]Result, len(vectors))
	for i, v := range vectors {
		results[i] = Result{Index: i, Score: Cosine(query, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results
}

// Round rounds score to the given number of decimal places for display.
func Round(score float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(score*p) / p
}
