package dendrite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestBuildFillsPlaceholdersInOrder(t *testing.T) {
	b := Build([]int{1, 2, 3}, map[int][]*string{
		1: {strp("a"), strp("b")},
		3: {strp("c")},
	}, 10*time.Second)

	require.Equal(t, 3, b.Len())
	assert.Equal(t, []int{1, 2, 3}, b.UIDs())

	results := b.Results()
	assert.Equal(t, []string{"a", "b"}, results[0].Chunks)
	assert.True(t, results[0].Responded)
	assert.Empty(t, results[1].Chunks)
	assert.False(t, results[1].Responded)
	assert.Equal(t, []string{"c"}, results[2].Chunks)
	assert.Equal(t, []string{"ab", "", "c"}, b.Completions())
	assert.Equal(t, 10*time.Second, b.Timeout())
}

func TestBuildPreservesCallerOrder(t *testing.T) {
	b := Build([]int{9, 4, 7}, map[int][]*string{4: {strp("x")}}, time.Second)
	assert.Equal(t, []int{9, 4, 7}, b.UIDs())
}

func TestBuildFiltersNullChunks(t *testing.T) {
	b := Build([]int{5}, map[int][]*string{5: {nil, strp("hello"), nil, strp(" world")}}, time.Second)
	assert.Equal(t, "hello world", b.Results()[0].Completion())
}

func TestBuildDropsDuplicateUIDs(t *testing.T) {
	b := Build([]int{1, 2, 1}, nil, time.Second)
	assert.Equal(t, []int{1, 2}, b.UIDs())
}

func TestBundleIsNotMutableThroughAccessors(t *testing.T) {
	b := Build([]int{1, 2}, map[int][]*string{1: {strp("a")}}, time.Second)

	uids := b.UIDs()
	uids[0] = 42
	results := b.Results()
	results[0].Chunks[0] = "tampered"

	assert.Equal(t, []int{1, 2}, b.UIDs())
	assert.Equal(t, "a", b.Results()[0].Chunks[0])
}
