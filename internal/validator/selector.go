package validator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/0xxfu/prompting/internal/task"
)

const weightTolerance = 1e-6

var ErrInvalidTaskWeights = errors.New("invalid task probabilities")

// TaskSelector draws a task kind according to configured probabilities.
type TaskSelector struct {
	kinds []task.Kind
	// cumulative distribution over kinds
	cdf []float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTaskSelector validates the configured kinds and weights. Weights must be
// non-negative and sum to 1. Kinds listed more than once have their weights
// summed; kinds with zero weight are never drawn.
func NewTaskSelector(names []string, probs []float64) (*TaskSelector, error) {
	return newTaskSelector(names, probs, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func newTaskSelector(names []string, probs []float64, rng *rand.Rand) (*TaskSelector, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no tasks configured", ErrInvalidTaskWeights)
	}
	if len(names) != len(probs) {
		return nil, fmt.Errorf("%w: %d tasks but %d probabilities", ErrInvalidTaskWeights, len(names), len(probs))
	}
	kinds, err := task.ParseKinds(names)
	if err != nil {
		return nil, err
	}
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: %s has probability %v", ErrInvalidTaskWeights, kinds[i], p)
		}
	}
	if sum := floats.Sum(probs); math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("%w: probabilities sum to %v, expected 1", ErrInvalidTaskWeights, sum)
	}

	merged := make(map[task.Kind]float64, len(kinds))
	order := make([]task.Kind, 0, len(kinds))
	for i, k := range kinds {
		if _, seen := merged[k]; !seen {
			order = append(order, k)
		}
		merged[k] += probs[i]
	}

	s := &TaskSelector{rng: rng}
	weights := make([]float64, 0, len(order))
	for _, k := range order {
		if merged[k] == 0 {
			continue
		}
		s.kinds = append(s.kinds, k)
		weights = append(weights, merged[k])
	}
	s.cdf = make([]float64, len(weights))
	floats.CumSum(s.cdf, weights)
	return s, nil
}

// Next draws one kind.
func (s *TaskSelector) Next() task.Kind {
	s.mu.Lock()
	r := s.rng.Float64() * s.cdf[len(s.cdf)-1]
	s.mu.Unlock()

	i := sort.SearchFloat64s(s.cdf, r)
	// r == cdf[i] belongs to the next bucket
	for i < len(s.cdf)-1 && s.cdf[i] <= r {
		i++
	}
	return s.kinds[i]
}

// ActiveKinds lists the kinds with a non-zero probability, in configured order.
func (s *TaskSelector) ActiveKinds() []task.Kind {
	return append([]task.Kind(nil), s.kinds...)
}
