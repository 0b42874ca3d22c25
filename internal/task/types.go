// Package task defines the closed set of task variants scored by the validator.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the discriminator carried in the "task" field of a payload.
type Kind string

const (
	InferenceKind    Kind = "InferenceTask"
	WebRetrievalKind Kind = "WebRetrievalTask"
)

func (k Kind) String() string { return string(k) }

// Source records whether a task came from the forward loop or a client.
type Source string

const (
	SourceSynthetic Source = "synthetic"
	SourceOrganic   Source = "organic"
)

// OrganicStep is the step assigned to every organically sourced task.
const OrganicStep = -1

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SamplingParams struct {
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	TopK         int     `json:"top_k"`
	MaxNewTokens int     `json:"max_new_tokens"`
	DoSample     bool    `json:"do_sample"`
}

// DefaultSamplingParams is used when an inference payload carries none.
var DefaultSamplingParams = SamplingParams{
	Temperature:  0.7,
	TopP:         0.95,
	TopK:         50,
	MaxNewTokens: 1024,
	DoSample:     true,
}

// Task is implemented by InferenceTask and WebRetrievalTask only.
type Task interface {
	ID() string
	Kind() Kind
	Info() Base
	isTask()
}

// Base holds the attributes shared by every variant.
type Base struct {
	TaskID    string
	Messages  []Message
	Query     string
	Sampling  SamplingParams
	Seed      int
	ModelID   string
	Source    Source
	Step      int
	Block     int
	CreatedAt time.Time
}

func (b Base) ID() string { return b.TaskID }

func (b Base) Info() Base { return b }

// NewBase stamps a fresh task id and creation time.
func NewBase(source Source, step, block int) Base {
	return Base{
		TaskID:    uuid.NewString(),
		Source:    source,
		Step:      step,
		Block:     block,
		CreatedAt: time.Now(),
	}
}

type InferenceTask struct {
	Base
	// Model is nil when the payload named no model.
	Model *Model
}

func (InferenceTask) Kind() Kind { return InferenceKind }
func (InferenceTask) isTask()    {}

type WebRetrievalTask struct {
	Base
	SearchTerm string
}

func (WebRetrievalTask) Kind() Kind { return WebRetrievalKind }
func (WebRetrievalTask) isTask()    {}

// DatasetEntry describes where a task's content came from.
type DatasetEntry interface {
	isDatasetEntry()
}

// EmptyEntry is used by tasks with no external dataset origin.
type EmptyEntry struct{}

func (EmptyEntry) isDatasetEntry() {}

type SearchEntry struct {
	SearchTerm string
}

func (SearchEntry) isDatasetEntry() {}

// ParseKinds converts configured kind names, rejecting unknown ones.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(n)
		switch k {
		case InferenceKind, WebRetrievalKind:
			kinds = append(kinds, k)
		default:
			return nil, &UnknownKindError{Kind: n}
		}
	}
	return kinds, nil
}

type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return "unknown task kind " + e.Kind
}

// WithStep returns a copy of t carrying step. Tasks must not be changed once
// they are queued, so callers set the step before building the queue entry.
func WithStep(t Task, step int) Task {
	switch v := t.(type) {
	case InferenceTask:
		v.Step = step
		return v
	case WebRetrievalTask:
		v.Step = step
		return v
	}
	return t
}
