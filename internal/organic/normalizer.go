// Package organic turns authenticated client payloads into typed tasks.
package organic

import (
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/task"
)

// BlockReader supplies the current block height.
type BlockReader interface {
	GetBlock() int
}

// Result is a normalized task with its dataset context.
type Result struct {
	Task    task.Task
	Dataset task.DatasetEntry
}

type normalizeFunc func(n *Normalizer, body *Body, base task.Base) (Result, error)

// handlers is keyed by the payload's task field.
var handlers = map[task.Kind]normalizeFunc{
	task.InferenceKind:    normalizeInference,
	task.WebRetrievalKind: normalizeWebRetrieval,
}

// Kinds lists the task kinds accepted from clients.
func Kinds() []task.Kind {
	kinds := make([]task.Kind, 0, len(handlers))
	for k := range handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

type Normalizer struct {
	models   task.ModelRegistry
	chain    BlockReader
	sampling task.SamplingParams
}

func NewNormalizer(models task.ModelRegistry, chain BlockReader, sampling task.SamplingParams) *Normalizer {
	return &Normalizer{models: models, chain: chain, sampling: sampling}
}

// Normalize builds a task from body. Every call yields a new task id and the
// block is read once per call.
func (n *Normalizer) Normalize(body *Body) (Result, error) {
	if body == nil {
		return Result{}, normErr(ErrMalformedPayload, "body is missing")
	}
	handler, ok := handlers[task.Kind(body.Task)]
	if !ok {
		return Result{}, normErr(ErrUnknownTaskKind, "%q", body.Task)
	}

	base := task.NewBase(task.SourceOrganic, task.OrganicStep, n.chain.GetBlock())
	base.Seed = int(body.Seed)
	return handler(n, body, base)
}

func normalizeInference(n *Normalizer, body *Body, base task.Base) (Result, error) {
	if len(body.Messages) == 0 {
		return Result{}, normErr(ErrEmptyMessages, "inference task needs at least one message")
	}

	var model *task.Model
	if body.Model != "" {
		m, err := n.models.Resolve(body.Model)
		if err != nil {
			if !errors.Is(err, task.ErrModelNotFound) {
				log.Error().Err(err).Str("model", body.Model).Msg("model registry lookup failed")
			}
			return Result{}, normErr(ErrUnresolvableModel, "%s", body.Model)
		}
		model = m
	}

	base.Messages = append([]task.Message(nil), body.Messages...)
	base.Query = body.Messages[len(body.Messages)-1].Content
	base.ModelID = body.Model
	base.Sampling = n.sampling
	if body.SamplingParameters != nil {
		base.Sampling = *body.SamplingParameters
	}

	return Result{
		Task:    task.InferenceTask{Base: base, Model: model},
		Dataset: task.EmptyEntry{},
	}, nil
}

func normalizeWebRetrieval(_ *Normalizer, body *Body, base task.Base) (Result, error) {
	if len(body.Messages) == 0 {
		return Result{}, normErr(ErrMissingSearchTerm, "no messages")
	}
	term := strings.TrimSpace(body.Messages[0].Content)
	if term == "" {
		return Result{}, normErr(ErrMissingSearchTerm, "first message has no content")
	}

	msgs := make([]task.Message, len(body.Messages))
	for i, m := range body.Messages {
		msgs[i] = task.Message{Role: m.Role, Content: m.Content}
	}
	base.Messages = msgs
	base.Query = term
	if body.SamplingParams != nil {
		base.Sampling = *body.SamplingParams
	}

	return Result{
		Task:    task.WebRetrievalTask{Base: base, SearchTerm: term},
		Dataset: task.SearchEntry{SearchTerm: term},
	}, nil
}
