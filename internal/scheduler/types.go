package scheduler

import "sync"

// BlockCallback is a callback that triggers every N blocks
// WARN: if block sync skips ahead by several multiples of N, the callback
// triggers once instead of once per missed interval.
type BlockCallback struct {
	LastTriggerAtBlock int
	// interval is the number of blocks between triggers
	interval  int
	name      string
	executeFn ExecuteFunc
}

type ExecuteFunc func(block int) error

type CallbackHandler interface {
	// Determines if the callback should trigger at the given block
	ShouldTrigger(block int) bool
	// Executes the callback logic and returns an error if it fails
	Execute(block int) error
	// Returns the name of the callback, which may be inferred from the function name
	GetName() string
}

// Scheduler runs registered callbacks as new blocks are observed.
type Scheduler struct {
	mu        sync.Mutex
	callbacks []CallbackHandler
}
