package validator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xxfu/prompting/internal/config"
	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/kami"
	"github.com/0xxfu/prompting/internal/rewards"
	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/internal/syntheticapi"
	"github.com/0xxfu/prompting/internal/task"
	"github.com/0xxfu/prompting/internal/chain"
)

const selfHotkey = "5validator"

type fakeKami struct {
	metagraph      kami.SubnetMetagraph
	block          int
	metagraphCalls int
}

func (k *fakeKami) GetMetagraph(_ context.Context, netuid int) (kami.SubnetMetagraphResponse, error) {
	k.metagraphCalls++
	mg := k.metagraph
	mg.Netuid = netuid
	return kami.SubnetMetagraphResponse{Success: true, Data: mg}, nil
}

func (k *fakeKami) GetLatestBlock(context.Context) (kami.LatestBlockResponse, error) {
	return kami.LatestBlockResponse{Success: true, Data: kami.LatestBlock{BlockNumber: k.block}}, nil
}

func (k *fakeKami) GetKeyringPair(context.Context) (kami.KeyringPairInfoResponse, error) {
	return kami.KeyringPairInfoResponse{
		Success: true,
		Data:    kami.KeyringPairInfo{KeyringPair: kami.KeyringPair{Address: selfHotkey}},
	}, nil
}

type fakeSynthetic struct {
	prompt string
	err    error
}

func (s *fakeSynthetic) GetQuestion(context.Context) (syntheticapi.GenerateQuestionResponse, error) {
	if s.err != nil {
		return syntheticapi.GenerateQuestionResponse{}, s.err
	}
	return syntheticapi.GenerateQuestionResponse{Success: true, Prompt: s.prompt, QaID: "qa-1"}, nil
}

// fakeTransport answers with one chunk per peer, except the last peer which
// stays silent.
type fakeTransport struct {
	mu      sync.Mutex
	calls   int
	peers   []dendrite.Peer
	block   chan struct{}
	started chan struct{}
}

func (f *fakeTransport) Dispatch(ctx context.Context, peers []dendrite.Peer, _ task.Task, timeout time.Duration) *dendrite.ResponseBundle {
	f.mu.Lock()
	f.calls++
	f.peers = peers
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	uids := make([]int, len(peers))
	chunks := map[int][]*string{}
	for i, p := range peers {
		uids[i] = p.UID
		if i < len(peers)-1 {
			c := "answer"
			chunks[p.UID] = []*string{&c}
		}
	}
	return dendrite.Build(uids, chunks, timeout)
}

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]int64
	incrErr error
}

func (r *fakeRedis) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return "", nil
	}
	return strconv.FormatInt(v, 10), nil
}

func (r *fakeRedis) Set(context.Context, string, string, time.Duration) error { return nil }

func (r *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrErr != nil {
		return 0, r.incrErr
	}
	r.values[key]++
	return r.values[key], nil
}

func (r *fakeRedis) Close() {}

func testMetagraph(n int) kami.SubnetMetagraph {
	mg := kami.SubnetMetagraph{}
	for uid := range n {
		mg.Hotkeys = append(mg.Hotkeys, "5miner"+strconv.Itoa(uid))
		mg.Axons = append(mg.Axons, kami.AxonInfo{IP: "10.0.0." + strconv.Itoa(uid+1), Port: 8091})
		mg.AlphaStake = append(mg.AlphaStake, 10)
		mg.TaoStake = append(mg.TaoStake, 0)
	}
	// a validator with a large stake, never sampled
	mg.Hotkeys = append(mg.Hotkeys, "5bigvalidator")
	mg.Axons = append(mg.Axons, kami.AxonInfo{IP: "10.0.1.1", Port: 8091})
	mg.AlphaStake = append(mg.AlphaStake, 1_000_000)
	mg.TaoStake = append(mg.TaoStake, 0)
	return mg
}

type harness struct {
	v         *Validator
	queue     *scoring.Queue
	transport *fakeTransport
	kami      *fakeKami
}

func newHarness(t *testing.T, probs []float64, mutate func(*Dependencies)) *harness {
	t.Helper()

	selector, err := NewTaskSelector([]string{"InferenceTask", "WebRetrievalTask"}, probs)
	require.NoError(t, err)

	k := &fakeKami{metagraph: testMetagraph(4), block: 1200}
	state := chain.NewChainState(1)
	state.SetBlock(1200)
	state.SetMetagraph(k.metagraph)

	h := &harness{
		queue:     scoring.NewQueue(8),
		transport: &fakeTransport{},
		kami:      k,
	}
	deps := Dependencies{
		Kami:          k,
		SyntheticAPI:  &fakeSynthetic{prompt: "what is the tallest mountain"},
		Transport:     h.transport,
		Queue:         h.queue,
		Chain:         state,
		Selector:      selector,
		Models:        task.NewStaticRegistry("model-a", "model-b"),
		Hotkey:        selfHotkey,
		NeuronTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&deps)
	}

	v, err := NewValidator(&config.ValidatorEnvConfig{Environment: "test", SampleSize: 3}, deps)
	require.NoError(t, err)
	t.Cleanup(v.Stop)
	h.v = v
	return h
}

func dequeue(t *testing.T, q *scoring.Queue) scoring.Entry {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	e, err := q.Dequeue(ctx)
	require.NoError(t, err)
	q.Done(e.TaskID)
	return e
}

func TestForward_EnqueuesInferenceTask(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, nil)

	require.NoError(t, h.v.Forward(t.Context()))
	assert.Equal(t, StateIdle, h.v.State())
	require.Equal(t, 1, h.queue.Len())

	e := dequeue(t, h.queue)
	it, ok := e.Task.(task.InferenceTask)
	require.True(t, ok, "got %T", e.Task)
	assert.Equal(t, task.SourceSynthetic, it.Source)
	assert.Equal(t, "what is the tallest mountain", it.Query)
	assert.Contains(t, []string{"model-a", "model-b"}, it.ModelID)
	assert.Equal(t, task.DefaultSamplingParams, it.Sampling)
	assert.Equal(t, 1, e.Step)
	assert.Equal(t, 1200, e.Block)
	assert.Equal(t, task.EmptyEntry{}, e.Dataset)

	// sample size caps the peers and the validator itself is never queried
	assert.Equal(t, 3, e.Response.Len())
	for _, p := range h.transport.peers {
		assert.NotEqual(t, "5bigvalidator", p.Hotkey)
	}
	assert.Len(t, e.Response.Completions(), 3)
}

func TestForward_WebRetrievalUsesPromptAsSearchTerm(t *testing.T) {
	h := newHarness(t, []float64{0, 1}, nil)

	require.NoError(t, h.v.Forward(t.Context()))
	e := dequeue(t, h.queue)

	wt, ok := e.Task.(task.WebRetrievalTask)
	require.True(t, ok, "got %T", e.Task)
	assert.Equal(t, "what is the tallest mountain", wt.SearchTerm)
	assert.Equal(t, task.SearchEntry{SearchTerm: "what is the tallest mountain"}, e.Dataset)
}

func TestForward_StepIsMonotonic(t *testing.T) {
	h := newHarness(t, []float64{0.5, 0.5}, nil)

	var steps []int
	for range 5 {
		require.NoError(t, h.v.Forward(t.Context()))
		steps = append(steps, dequeue(t, h.queue).Step)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, steps)
}

func TestForward_StepSeededFromRedisAndBoard(t *testing.T) {
	r := &fakeRedis{values: map[string]int64{redisStepKey: 41}}
	board := rewards.NewScoreBoard(0.1, 8)
	require.NoError(t, board.Update([]int{0}, []float64{1}, 10))

	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.Redis = r
		d.Board = board
	})

	require.NoError(t, h.v.Forward(t.Context()))
	assert.Equal(t, 42, dequeue(t, h.queue).Step)

	// redis failing keeps the counter moving locally
	r.incrErr = errors.New("connection refused")
	require.NoError(t, h.v.Forward(t.Context()))
	assert.Equal(t, 43, dequeue(t, h.queue).Step)
}

func TestForward_NoMiners(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.Chain = chain.NewChainState(1)
	})

	err := h.v.Forward(t.Context())
	assert.ErrorIs(t, err, ErrNoMiners)
	assert.Zero(t, h.queue.Len())
	assert.Zero(t, h.transport.calls)
	assert.Equal(t, StateIdle, h.v.State())
}

func TestForward_SyntheticAPIFailure(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.SyntheticAPI = &fakeSynthetic{err: errors.New("503")}
	})

	require.Error(t, h.v.Forward(t.Context()))
	assert.Zero(t, h.queue.Len())
	assert.Equal(t, StateIdle, h.v.State())
}

func TestForward_QueueFull(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.Queue = scoring.NewQueue(1)
	})

	require.NoError(t, h.v.Forward(t.Context()))
	err := h.v.Forward(t.Context())
	assert.ErrorIs(t, err, scoring.ErrQueueFull)
	assert.Equal(t, 1, h.v.Queue.Len())
}

func TestForward_SinglePassAtATime(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, nil)
	h.transport.block = make(chan struct{})
	h.transport.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- h.v.Forward(t.Context()) }()

	<-h.transport.started
	assert.Equal(t, StateAwaitingResponses, h.v.State())
	assert.ErrorIs(t, h.v.Forward(t.Context()), ErrForwardInProgress)

	close(h.transport.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, h.v.State())
	assert.Equal(t, 1, h.queue.Len())
}

func TestStopWaitsForRunningForward(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, nil)
	h.transport.block = make(chan struct{})
	h.transport.started = make(chan struct{}, 1)

	h.v.Wg.Add(1)
	go h.v.runTicker(h.v.Ctx, 5*time.Millisecond, func() { h.v.runForward(h.v.Ctx) })
	<-h.transport.started

	stopped := make(chan struct{})
	go func() {
		h.v.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a forward pass was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.transport.block)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, 1, h.queue.Len())
	assert.Equal(t, StateIdle, h.v.State())
}

func TestNewValidator_HotkeyFromKami(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.Hotkey = ""
	})
	assert.Equal(t, selfHotkey, h.v.ValidatorHotkey)
}

func TestNewValidator_ForwardIntervalOverride(t *testing.T) {
	selector, err := NewTaskSelector([]string{"InferenceTask"}, []float64{1})
	require.NoError(t, err)

	v, err := NewValidator(&config.ValidatorEnvConfig{Environment: "prod", ForwardInterval: 3 * time.Second}, Dependencies{
		Kami:         &fakeKami{},
		SyntheticAPI: &fakeSynthetic{},
		Transport:    &fakeTransport{},
		Queue:        scoring.NewQueue(1),
		Chain:        chain.NewChainState(1),
		Selector:     selector,
		Hotkey:       selfHotkey,
	})
	require.NoError(t, err)
	defer v.Stop()

	assert.Equal(t, 3*time.Second, v.IntervalConfig.ForwardInterval)
	assert.Equal(t, config.ProdIntervalConfig.MetagraphBlocks, v.IntervalConfig.MetagraphBlocks)
	assert.NotEqual(t, 3*time.Second, config.ProdIntervalConfig.ForwardInterval, "preset must not be mutated")
}

func TestSyncBlockDrivesMetagraphSync(t *testing.T) {
	h := newHarness(t, []float64{1, 0}, func(d *Dependencies) {
		d.Chain = chain.NewChainState(7)
	})
	h.kami.block = 1500

	h.v.syncBlock(t.Context())

	snap := h.v.Chain.Snapshot()
	assert.Equal(t, 1500, snap.Block)
	assert.Equal(t, 7, snap.Metagraph.Netuid)
	assert.Len(t, snap.Metagraph.Hotkeys, 5)
	assert.Equal(t, 1, h.kami.metagraphCalls)

	// an older block is ignored and triggers nothing
	h.kami.block = 1400
	h.v.syncBlock(t.Context())
	assert.Equal(t, 1500, h.v.Chain.GetBlock())
	assert.Equal(t, 1, h.kami.metagraphCalls)

	// the test preset refreshes every 5 blocks
	for block := 1501; block <= 1505; block++ {
		h.kami.block = block
		h.v.syncBlock(t.Context())
	}
	assert.Equal(t, 2, h.kami.metagraphCalls)
}

func TestForwardStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "awaiting_responses", StateAwaitingResponses.String())
	assert.Equal(t, "enqueuing", StateEnqueuing.String())
}
