package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/task"
)

var ErrScoringTimeout = errors.New("scoring timed out")

// Scorer computes rewards for one entry.
type Scorer interface {
	Score(ctx context.Context, e Entry) error
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, e Entry) error

func (f ScorerFunc) Score(ctx context.Context, e Entry) error { return f(ctx, e) }

// ScoringError carries enough context to audit a dropped entry.
type ScoringError struct {
	TaskID string
	Kind   task.Kind
	Err    error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring task %s (%s): %v", e.TaskID, e.Kind, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Worker is the only consumer of a Queue.
type Worker struct {
	queue   *Queue
	scorer  Scorer
	timeout time.Duration
	// OnError is called for every dropped entry. Optional.
	OnError func(*ScoringError)
}

func NewWorker(queue *Queue, scorer Scorer, timeout time.Duration) *Worker {
	return &Worker{queue: queue, scorer: scorer, timeout: timeout}
}

// Run consumes entries until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("timeout", w.timeout).Msg("Scoring worker started")
	for {
		e, err := w.queue.Dequeue(ctx)
		if err != nil {
			log.Info().Msg("Scoring worker stopped")
			return
		}
		queueWait.Observe(time.Since(e.EnqueuedAt).Seconds())

		if serr := w.process(ctx, e); serr != nil {
			log.Error().
				Err(serr.Err).
				Str("task_id", serr.TaskID).
				Str("task_kind", serr.Kind.String()).
				Int("step", e.Step).
				Msg("Dropping entry after scoring failure")
			if w.OnError != nil {
				w.OnError(serr)
			}
		}
		w.queue.Done(e.TaskID)
	}
}

// process scores e once. Failed entries are never requeued.
func (w *Worker) process(ctx context.Context, e Entry) *ScoringError {
	kind := e.Task.Kind()
	start := time.Now()

	sctx := ctx
	cancel := func() {}
	if w.timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, w.timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("reward pipeline panicked: %v", r)
			}
		}()
		done <- w.scorer.Score(sctx, e)
	}()

	var err error
	select {
	case err = <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrScoringTimeout, err)
		}
	case <-sctx.Done():
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = fmt.Errorf("%w after %s", ErrScoringTimeout, w.timeout)
		}
		// the entry stays in flight until the scorer has observed the
		// cancellation, so no second computation overlaps it
		cancel()
		if late := <-done; late == nil {
			log.Warn().Str("task_id", e.TaskID).Msg("scorer finished after its deadline")
		}
	}
	scoringDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		result := "error"
		if errors.Is(err, ErrScoringTimeout) {
			result = "timeout"
		}
		scoredTotal.WithLabelValues(kind.String(), result).Inc()
		return &ScoringError{TaskID: e.TaskID, Kind: kind, Err: err}
	}

	scoredTotal.WithLabelValues(kind.String(), "ok").Inc()
	log.Debug().
		Str("task_id", e.TaskID).
		Str("task_kind", kind.String()).
		Int("step", e.Step).
		Dur("took", time.Since(start)).
		Msg("Scored entry")
	return nil
}
