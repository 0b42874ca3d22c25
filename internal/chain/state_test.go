package chain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xxfu/prompting/internal/kami"
)

func TestSetBlockIsMonotonic(t *testing.T) {
	cs := NewChainState(1)

	assert.True(t, cs.SetBlock(10))
	assert.False(t, cs.SetBlock(9))
	assert.False(t, cs.SetBlock(10))
	assert.Equal(t, 10, cs.GetBlock())
}

func TestSnapshotIsConsistent(t *testing.T) {
	cs := NewChainState(7)
	cs.SetBlock(100)
	cs.SetMetagraph(kami.SubnetMetagraph{Netuid: 7, Hotkeys: []string{"a", "b"}})

	snap := cs.Snapshot()
	assert.Equal(t, 7, snap.Netuid)
	assert.Equal(t, 100, snap.Block)
	assert.Equal(t, []string{"a", "b"}, snap.Metagraph.Hotkeys)
}

func TestConcurrentAccess(t *testing.T) {
	cs := NewChainState(1)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(b int) {
			defer wg.Done()
			cs.SetBlock(b)
		}(i)
		go func() {
			defer wg.Done()
			_ = cs.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, cs.GetBlock())
}
