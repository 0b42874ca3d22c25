// Package scoring hands tasks from producers to the single reward worker.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/task"
)

var (
	ErrQueueFull       = errors.New("scoring queue is full")
	ErrDuplicateTaskID = errors.New("task id already queued or in flight")
	ErrInvalidEntry    = errors.New("invalid scoring entry")
)

// QueueError unwraps to ErrQueueFull, ErrDuplicateTaskID or ErrInvalidEntry.
type QueueError struct {
	Kind   error
	TaskID string
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.TaskID)
}

func (e *QueueError) Unwrap() error {
	return e.Kind
}

// Entry is treated as immutable once enqueued.
type Entry struct {
	Task       task.Task
	Response   *dendrite.ResponseBundle
	Dataset    task.DatasetEntry
	Block      int
	Step       int
	TaskID     string
	EnqueuedAt time.Time
}

// NewEntry fills TaskID, Step and Block from t.
func NewEntry(t task.Task, response *dendrite.ResponseBundle, dataset task.DatasetEntry) Entry {
	info := t.Info()
	if dataset == nil {
		dataset = task.EmptyEntry{}
	}
	return Entry{
		Task:     t,
		Response: response,
		Dataset:  dataset,
		Block:    info.Block,
		Step:     info.Step,
		TaskID:   info.TaskID,
	}
}

// Queue is a bounded FIFO deduplicated by task id. At most one entry is in
// flight: Dequeue does not hand out another entry until Done is called.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	ids      map[string]struct{}
	inFlight string
	busy     bool
	capacity int
	notify   chan struct{}
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		entries:  make([]Entry, 0, capacity),
		ids:      make(map[string]struct{}, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends e, stamping EnqueuedAt. A full queue rejects the new entry.
func (q *Queue) Enqueue(e Entry) error {
	if e.TaskID == "" || e.Task == nil || e.Response == nil {
		enqueueTotal.WithLabelValues("invalid").Inc()
		return &QueueError{Kind: ErrInvalidEntry, TaskID: e.TaskID}
	}

	q.mu.Lock()
	if _, ok := q.ids[e.TaskID]; ok {
		q.mu.Unlock()
		enqueueTotal.WithLabelValues("duplicate").Inc()
		return &QueueError{Kind: ErrDuplicateTaskID, TaskID: e.TaskID}
	}
	if len(q.entries) >= q.capacity {
		q.mu.Unlock()
		enqueueTotal.WithLabelValues("full").Inc()
		return &QueueError{Kind: ErrQueueFull, TaskID: e.TaskID}
	}
	e.EnqueuedAt = time.Now()
	q.entries = append(q.entries, e)
	q.ids[e.TaskID] = struct{}{}
	queueDepth.Set(float64(len(q.entries)))
	q.mu.Unlock()

	enqueueTotal.WithLabelValues("accepted").Inc()
	q.signal()
	return nil
}

// Dequeue blocks until an entry is available and none is in flight, then
// marks the head entry in flight and returns it.
func (q *Queue) Dequeue(ctx context.Context) (Entry, error) {
	for {
		q.mu.Lock()
		if !q.busy && len(q.entries) > 0 {
			e := q.entries[0]
			q.entries[0] = Entry{}
			q.entries = q.entries[1:]
			q.busy = true
			q.inFlight = e.TaskID
			queueDepth.Set(float64(len(q.entries)))
			q.mu.Unlock()
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Done releases the in-flight entry so the next Dequeue can proceed.
func (q *Queue) Done(taskID string) {
	q.mu.Lock()
	if q.busy && q.inFlight == taskID {
		delete(q.ids, taskID)
		q.busy = false
		q.inFlight = ""
	}
	q.mu.Unlock()
	q.signal()
}

// Contains reports whether id is queued or in flight.
func (q *Queue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.ids[id]
	return ok
}

// Len is the number of queued entries, excluding the one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) Capacity() int { return q.capacity }

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
