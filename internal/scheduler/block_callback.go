package scheduler

import (
	"github.com/rs/zerolog/log"
)

// NewBlockCallback creates a new BlockCallback that triggers every N blocks.
// An empty name is inferred from execute.
func NewBlockCallback(name string, interval int, execute ExecuteFunc) *BlockCallback {
	if interval < 1 {
		interval = 1
	}
	if name == "" {
		name = InferNameFromFunc(execute)
	}
	return &BlockCallback{
		LastTriggerAtBlock: -1,
		interval:           interval,
		name:               name,
		executeFn:          execute,
	}
}

// ShouldTrigger reports whether interval blocks have passed since the last
// successful run. A callback that never ran triggers on the first block.
func (bc *BlockCallback) ShouldTrigger(block int) bool {
	if bc.LastTriggerAtBlock < 0 {
		return true
	}
	return block-bc.LastTriggerAtBlock >= bc.interval
}

// Execute runs the callback. The trigger block only moves forward on success
// so failed executions retry on the next block.
func (bc *BlockCallback) Execute(block int) error {
	if err := bc.executeFn(block); err != nil {
		return err
	}
	bc.LastTriggerAtBlock = block
	return nil
}

// GetName returns the callback name
func (bc *BlockCallback) GetName() string {
	return bc.name
}

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(callback CallbackHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
	log.Debug().Str("callback", callback.GetName()).Msg("Registered callback")
}

// OnBlock executes every callback due at block. Callbacks run one at a time.
func (s *Scheduler) OnBlock(block int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, callback := range s.callbacks {
		if !callback.ShouldTrigger(block) {
			continue
		}
		log.Debug().
			Str("callback", callback.GetName()).
			Int("block", block).
			Msg("Executing callback")

		if err := callback.Execute(block); err != nil {
			log.Error().
				Err(err).
				Str("callback", callback.GetName()).
				Msg("Failed to execute callback")
		}
	}
}
