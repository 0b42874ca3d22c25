package rewards

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func CalculateCosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	dotProduct := floats.Dot(a, b)
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (normA * normB)
}

// CalculateCosineSimilarityOnMatrix compares every row of vectors with ref.
func CalculateCosineSimilarityOnMatrix(vectors *mat.Dense, ref []float64) []float64 {
	rows, _ := vectors.Dims()

	out := make([]float64, rows)
	for rowIdx := range rows {
		sim := CalculateCosineSimilarity(mat.Row(nil, rowIdx, vectors), ref)
		if math.IsNaN(sim) {
			sim = 0.0
		}
		out[rowIdx] = sim
	}
	return out
}

func MinMaxScale(scores []float64) []float64 {
	result := make([]float64, len(scores))
	copy(result, scores)
	if len(result) == 0 {
		return result
	}

	min := floats.Min(result)
	max := floats.Max(result)

	if max != min {
		floats.AddConst(-min, result)
		floats.Scale(1.0/(max-min), result)
	} else if max > 0 {
		// every peer scored the same non-zero reward
		for i := range result {
			result[i] = 1
		}
	} else {
		floats.Scale(0, result)
	}

	return result
}

func L1Normalize(arr []float64) []float64 {
	result := make([]float64, len(arr))
	copy(result, arr)

	sum := floats.Sum(result)
	if sum > 0 {
		floats.Scale(1.0/sum, result)
	}

	return result
}
