// Package rewards computes per-peer rewards for scored tasks.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/internal/task"
	"github.com/0xxfu/prompting/internal/utils/logger"
)

var ErrNoRewardModel = errors.New("no reward model for task kind")

// RewardEvent is the outcome of scoring one queue entry.
type RewardEvent struct {
	TaskID  string
	Kind    task.Kind
	Step    int
	Block   int
	UIDs    []int
	Rewards []float64
}

// Pipeline implements scoring.Scorer. Calls are serialized.
type Pipeline struct {
	mu     sync.Mutex
	models map[task.Kind][]WeightedModel
	board  *ScoreBoard
	// OnEvent is called after each successful scoring. Optional.
	OnEvent func(RewardEvent)
}

// NewPipeline builds reward models for kinds. board may be nil.
func NewPipeline(kinds []task.Kind, board *ScoreBoard) *Pipeline {
	p := &Pipeline{models: make(map[task.Kind][]WeightedModel, len(kinds)), board: board}
	for _, k := range kinds {
		if m := DefaultModels(k); m != nil {
			p.models[k] = m
		}
	}
	return p
}

// SetModels replaces the models used for kind.
func (p *Pipeline) SetModels(kind task.Kind, models []WeightedModel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[kind] = models
}

func (p *Pipeline) Score(ctx context.Context, e scoring.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind := e.Task.Kind()
	models, ok := p.models[kind]
	if !ok || len(models) == 0 {
		return fmt.Errorf("%w: %s", ErrNoRewardModel, kind)
	}

	uids := e.Response.UIDs()
	completions := e.Response.Completions()
	reference := referenceFor(e.Task)

	total := make([]float64, len(uids))
	for _, wm := range models {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := wm.Model.Reward(reference, completions)
		if len(r) != len(total) {
			return fmt.Errorf("model %s returned %d rewards for %d peers", wm.Model.Name(), len(r), len(total))
		}
		floats.AddScaled(total, wm.Weight, r)
	}
	rewards := MinMaxScale(total)

	event := RewardEvent{
		TaskID:  e.TaskID,
		Kind:    kind,
		Step:    e.Step,
		Block:   e.Block,
		UIDs:    uids,
		Rewards: rewards,
	}

	logger.Sugar().Infow("Computed rewards",
		"task_id", event.TaskID,
		"task_kind", kind.String(),
		"step", event.Step,
		"block", event.Block,
		"uids", event.UIDs,
		"rewards", event.Rewards,
	)

	// an abandoned computation must not commit
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.board != nil {
		if err := p.board.Update(uids, rewards, e.Step); err != nil {
			return fmt.Errorf("update score board: %w", err)
		}
	}
	if p.OnEvent != nil {
		p.OnEvent(event)
	}
	return nil
}
