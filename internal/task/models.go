package task

import (
	"errors"
	"fmt"
	"sync"
)

var ErrModelNotFound = errors.New("model not found")

// Model is a handle on a model served by the miners.
type Model struct {
	ID string
}

// ModelRegistry resolves model identifiers.
type ModelRegistry interface {
	Resolve(modelID string) (*Model, error)
}

// StaticRegistry is a ModelRegistry backed by a fixed list of identifiers.
type StaticRegistry struct {
	mu     sync.RWMutex
	models map[string]*Model
	order  []string
}

func NewStaticRegistry(ids ...string) *StaticRegistry {
	r := &StaticRegistry{models: make(map[string]*Model, len(ids))}
	for _, id := range ids {
		r.Add(id)
	}
	return r
}

func (r *StaticRegistry) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; ok || id == "" {
		return
	}
	r.models[id] = &Model{ID: id}
	r.order = append(r.order, id)
}

func (r *StaticRegistry) Resolve(modelID string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	return m, nil
}

// IDs returns the registered identifiers in insertion order.
func (r *StaticRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
