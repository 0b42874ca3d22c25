// Package validator implements the validator runtime: chain sync, the
// synthetic forward loop, and periodic score persistence.
package validator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/config"
	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/kami"
	"github.com/0xxfu/prompting/internal/rewards"
	"github.com/0xxfu/prompting/internal/scheduler"
	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/internal/syntheticapi"
	"github.com/0xxfu/prompting/internal/utils/redis"
	"github.com/0xxfu/prompting/internal/chain"
)

// ModelCatalog lists the models synthetic inference tasks may target.
type ModelCatalog interface {
	IDs() []string
}

// Dependencies groups the collaborators of a Validator. Redis and Board are
// optional.
type Dependencies struct {
	Kami         kami.KamiInterface
	Redis        redis.RedisInterface
	SyntheticAPI syntheticapi.SyntheticAPIInterface
	Transport    dendrite.Transport
	Queue        *scoring.Queue
	Chain        *chain.ChainState
	Selector     *TaskSelector
	Models       ModelCatalog
	Board        *rewards.ScoreBoard

	// Hotkey is looked up through Kami when empty.
	Hotkey        string
	NeuronTimeout time.Duration
}

// Validator runs the synthetic forward loop against the current metagraph.
type Validator struct {
	Kami         kami.KamiInterface
	Redis        redis.RedisInterface
	SyntheticAPI syntheticapi.SyntheticAPIInterface
	Transport    dendrite.Transport
	Queue        *scoring.Queue
	Chain        *chain.ChainState
	Selector     *TaskSelector
	Models       ModelCatalog
	Board        *rewards.ScoreBoard

	ValidatorHotkey string
	NeuronTimeout   time.Duration

	IntervalConfig  *config.IntervalConfig
	ValidatorConfig *config.ValidatorEnvConfig

	// runs block-driven callbacks after each block sync
	Scheduler *scheduler.Scheduler

	Ctx    context.Context
	Cancel context.CancelFunc
	Wg     sync.WaitGroup

	state          atomic.Int32
	forwardRunning atomic.Bool

	stepMu   sync.Mutex
	lastStep int

	// only touched from inside a forward pass
	rng *rand.Rand
}

// NewValidator constructs a Validator with intervals based on environment.
func NewValidator(cfg *config.ValidatorEnvConfig, deps Dependencies) (*Validator, error) {
	switch {
	case deps.Kami == nil:
		return nil, errors.New("kami client is required")
	case deps.SyntheticAPI == nil:
		return nil, errors.New("synthetic api client is required")
	case deps.Transport == nil:
		return nil, errors.New("transport is required")
	case deps.Queue == nil:
		return nil, errors.New("scoring queue is required")
	case deps.Chain == nil:
		return nil, errors.New("chain state is required")
	case deps.Selector == nil:
		return nil, errors.New("task selector is required")
	}

	intervalConfig := *config.NewIntervalConfig(cfg.Environment)
	if cfg.ForwardInterval > 0 {
		intervalConfig.ForwardInterval = cfg.ForwardInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	hotkey := deps.Hotkey
	if hotkey == "" {
		h, err := kami.GetHotkey(ctx, deps.Kami)
		if err != nil {
			cancel()
			return nil, err
		}
		hotkey = h
	}
	log.Info().Msgf("Validator hotkey %s loaded!", hotkey)

	timeout := deps.NeuronTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	v := &Validator{
		Kami:         deps.Kami,
		Redis:        deps.Redis,
		SyntheticAPI: deps.SyntheticAPI,
		Transport:    deps.Transport,
		Queue:        deps.Queue,
		Chain:        deps.Chain,
		Selector:     deps.Selector,
		Models:       deps.Models,
		Board:        deps.Board,

		ValidatorHotkey: hotkey,
		NeuronTimeout:   timeout,

		IntervalConfig:  &intervalConfig,
		ValidatorConfig: cfg,

		Scheduler: scheduler.New(),

		Ctx:    ctx,
		Cancel: cancel,

		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	v.seedStep(ctx)
	v.Scheduler.Register(scheduler.NewBlockCallback("metagraph_sync", intervalConfig.MetagraphBlocks, func(int) error {
		return v.syncMetagraph(v.Ctx)
	}))
	return v, nil
}

// runTicker runs a function periodically until the provided context is canceled.
// fn is executed in its own goroutine to ensure the ticker loop can exit quickly
// when the context is canceled. Those goroutines count towards Wg, so Stop
// returns only after the last run has finished.
func (v *Validator) runTicker(ctx context.Context, d time.Duration, fn func()) {
	defer v.Wg.Done()
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v.Wg.Add(1)
			go func() {
				defer v.Wg.Done()
				fn()
			}()
		}
	}
}

// Start performs an initial chain sync and kicks off periodic routines. The
// metagraph is refreshed from the block scheduler.
func (v *Validator) Start() {
	v.syncBlock(v.Ctx)

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.ForwardInterval, func() {
		v.runForward(v.Ctx)
	})

	v.Wg.Add(1)
	go v.runTicker(v.Ctx, v.IntervalConfig.BlockInterval, func() {
		v.syncBlock(v.Ctx)
	})

	if v.Board != nil {
		v.Wg.Add(1)
		go v.runTicker(v.Ctx, v.IntervalConfig.SaveInterval, v.saveScores)
	}
}

// Stop cancels background routines, waits for them to finish and writes
// the score board one last time.
func (v *Validator) Stop() {
	if v.Cancel != nil {
		v.Cancel()
	}
	v.Wg.Wait()
	if v.Board != nil {
		v.saveScores()
	}
}
