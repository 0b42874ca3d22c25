// Package chain holds the validator's view of the chain between syncs.
package chain

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/kami"
)

// ChainState holds the latest block and metagraph for one netuid.
// It uses a mutex to ensure thread-safe access to its fields.
type ChainState struct {
	mu        sync.RWMutex
	netuid    int
	block     int
	metagraph kami.SubnetMetagraph
}

// Snapshot is a consistent copy of ChainState taken under one lock.
type Snapshot struct {
	Netuid    int
	Block     int
	Metagraph kami.SubnetMetagraph
}

func NewChainState(netuid int) *ChainState {
	return &ChainState{netuid: netuid}
}

// GetBlock safely reads the current block number
func (cs *ChainState) GetBlock() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.block
}

// GetMetagraph safely reads the current metagraph
func (cs *ChainState) GetMetagraph() kami.SubnetMetagraph {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.metagraph
}

func (cs *ChainState) GetNetuid() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.netuid
}

func (cs *ChainState) Snapshot() Snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Snapshot{Netuid: cs.netuid, Block: cs.block, Metagraph: cs.metagraph}
}

// SetBlock updates the block number. Blocks never move backwards.
func (cs *ChainState) SetBlock(block int) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if block <= cs.block {
		log.Trace().
			Int("current_block", cs.block).
			Int("new_block", block).
			Msg("new block is <= current block, not updating state")
		return false
	}
	cs.block = block
	return true
}

// SetMetagraph safely updates the metagraph
func (cs *ChainState) SetMetagraph(metagraph kami.SubnetMetagraph) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.metagraph = metagraph
}
