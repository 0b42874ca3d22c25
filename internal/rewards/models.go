package rewards

import (
	"strings"

	"github.com/0xxfu/prompting/internal/task"
)

// RewardModel scores each completion against a reference. The result has one
// value per completion, in the same order.
type RewardModel interface {
	Name() string
	Reward(reference string, completions []string) []float64
}

type WeightedModel struct {
	Model  RewardModel
	Weight float64
}

// RelevanceModel is the cosine similarity of bag-of-words vectors.
type RelevanceModel struct{}

func (RelevanceModel) Name() string { return "relevance" }

func (RelevanceModel) Reward(reference string, completions []string) []float64 {
	vectors, ref := termVectors(reference, completions)
	if vectors == nil {
		return make([]float64, len(completions))
	}
	return CalculateCosineSimilarityOnMatrix(vectors, ref)
}

// ResponsivenessModel rewards any non-empty completion.
type ResponsivenessModel struct{}

func (ResponsivenessModel) Name() string { return "responsiveness" }

func (ResponsivenessModel) Reward(_ string, completions []string) []float64 {
	out := make([]float64, len(completions))
	for i, c := range completions {
		if strings.TrimSpace(c) != "" {
			out[i] = 1
		}
	}
	return out
}

// DefaultModels returns the model set for kind, or nil if kind has none.
func DefaultModels(kind task.Kind) []WeightedModel {
	switch kind {
	case task.InferenceKind:
		return []WeightedModel{
			{Model: RelevanceModel{}, Weight: 0.8},
			{Model: ResponsivenessModel{}, Weight: 0.2},
		}
	case task.WebRetrievalKind:
		return []WeightedModel{
			{Model: RelevanceModel{}, Weight: 0.9},
			{Model: ResponsivenessModel{}, Weight: 0.1},
		}
	}
	return nil
}

// referenceFor is what completions are compared with.
func referenceFor(t task.Task) string {
	switch v := t.(type) {
	case task.WebRetrievalTask:
		return v.SearchTerm
	case task.InferenceTask:
		return v.Query
	}
	return t.Info().Query
}
