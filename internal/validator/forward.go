package validator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/kami"
	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/internal/task"
	chainutils "github.com/0xxfu/prompting/internal/utils/chain_utils"
)

const redisStepKey = "validator:step"

var (
	ErrForwardInProgress = errors.New("forward pass already running")
	ErrNoMiners          = errors.New("no miners available")
)

// ForwardState is the phase of the forward loop.
type ForwardState int32

const (
	StateIdle ForwardState = iota
	StateDispatching
	StateAwaitingResponses
	StateEnqueuing
)

func (s ForwardState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingResponses:
		return "awaiting_responses"
	case StateEnqueuing:
		return "enqueuing"
	}
	return "unknown"
}

func (v *Validator) State() ForwardState {
	return ForwardState(v.state.Load())
}

func (v *Validator) setState(s ForwardState) {
	prev := ForwardState(v.state.Swap(int32(s)))
	log.Trace().Str("from", prev.String()).Str("to", s.String()).Msg("forward state")
}

func (v *Validator) runForward(ctx context.Context) {
	err := v.Forward(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrForwardInProgress):
		log.Debug().Msg("previous forward pass still running, skipping")
	case errors.Is(err, ErrNoMiners):
		log.Info().Msg("no miners to query, skipping forward pass")
	case errors.Is(err, scoring.ErrDuplicateTaskID):
		log.Warn().Err(err).Msg("synthetic task already queued")
	default:
		log.Error().Err(err).Msg("forward pass failed")
	}
}

// Forward runs one synthetic round: choose a task kind, build the task,
// query a sample of miners and enqueue the responses for scoring. Only one
// pass runs at a time.
func (v *Validator) Forward(ctx context.Context) error {
	if !v.forwardRunning.CompareAndSwap(false, true) {
		return ErrForwardInProgress
	}
	defer v.forwardRunning.Store(false)
	defer v.setState(StateIdle)

	v.setState(StateDispatching)
	kind := v.Selector.Next()

	question, err := v.SyntheticAPI.GetQuestion(ctx)
	if err != nil {
		return fmt.Errorf("synthetic question: %w", err)
	}

	snapshot := v.Chain.Snapshot()
	peers := v.samplePeers(&snapshot.Metagraph)
	if len(peers) == 0 {
		return ErrNoMiners
	}

	t, dataset, err := v.buildSyntheticTask(kind, question.Prompt, snapshot.Block)
	if err != nil {
		return err
	}

	log.Info().
		Str("task_id", t.ID()).
		Str("task_kind", kind.String()).
		Int("miners", len(peers)).
		Msg("dispatching synthetic task")

	v.setState(StateAwaitingResponses)
	bundle := v.Transport.Dispatch(ctx, peers, t, v.NeuronTimeout)

	v.setState(StateEnqueuing)
	step := v.nextStep(ctx)
	t = task.WithStep(t, step)
	if err := v.Queue.Enqueue(scoring.NewEntry(t, bundle, dataset)); err != nil {
		return fmt.Errorf("enqueue step %d: %w", step, err)
	}

	log.Info().
		Str("task_id", t.ID()).
		Int("step", step).
		Int("responses", countResponded(bundle)).
		Msg("synthetic task queued for scoring")
	return nil
}

func (v *Validator) buildSyntheticTask(kind task.Kind, prompt string, block int) (task.Task, task.DatasetEntry, error) {
	if prompt == "" {
		return nil, nil, errors.New("synthetic prompt is empty")
	}
	base := task.NewBase(task.SourceSynthetic, 0, block)
	base.Messages = []task.Message{{Role: "user", Content: prompt}}
	base.Query = prompt
	base.Seed = v.rng.IntN(1_000_000)

	switch kind {
	case task.InferenceKind:
		base.Sampling = task.DefaultSamplingParams
		var model *task.Model
		if v.Models != nil {
			if ids := v.Models.IDs(); len(ids) > 0 {
				model = &task.Model{ID: ids[v.rng.IntN(len(ids))]}
				base.ModelID = model.ID
			}
		}
		return task.InferenceTask{Base: base, Model: model}, task.EmptyEntry{}, nil
	case task.WebRetrievalKind:
		return task.WebRetrievalTask{Base: base, SearchTerm: prompt}, task.SearchEntry{SearchTerm: prompt}, nil
	}
	return nil, nil, &task.UnknownKindError{Kind: string(kind)}
}

func (v *Validator) samplePeers(metagraph *kami.SubnetMetagraph) []dendrite.Peer {
	peers := chainutils.MinerPeers(metagraph, v.ValidatorConfig.Environment, v.ValidatorHotkey)
	v.rng.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })
	if n := v.ValidatorConfig.SampleSize; n > 0 && len(peers) > n {
		peers = peers[:n]
	}
	return peers
}

// nextStep returns a strictly increasing synthetic step. Redis keeps the
// counter across restarts; when it is unreachable the local counter is used.
func (v *Validator) nextStep(ctx context.Context) int {
	v.stepMu.Lock()
	defer v.stepMu.Unlock()

	next := v.lastStep + 1
	if v.Redis != nil {
		n, err := v.Redis.Incr(ctx, redisStepKey)
		if err != nil {
			log.Warn().Err(err).Msg("failed to increment step in redis, using local counter")
		} else if int(n) > next {
			next = int(n)
		}
	}
	v.lastStep = next
	return next
}

func (v *Validator) seedStep(ctx context.Context) {
	start := 0
	if v.Board != nil {
		start = v.Board.Scores().Step
	}
	if v.Redis != nil {
		raw, err := v.Redis.Get(ctx, redisStepKey)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("failed to read step from redis")
		case raw != "":
			if n, err := strconv.Atoi(raw); err == nil && n > start {
				start = n
			}
		}
	}

	v.stepMu.Lock()
	v.lastStep = start
	v.stepMu.Unlock()
	log.Info().Int("step", start).Msg("synthetic step counter seeded")
}

func countResponded(b *dendrite.ResponseBundle) int {
	n := 0
	for _, r := range b.Results() {
		if r.Responded {
			n++
		}
	}
	return n
}
