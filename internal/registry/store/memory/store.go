// Package memory provides the in-memory operator state store.
package memory

import (
	"context"
	"sync"

	"dcbgate/internal/registry"
	"dcbgate/pkg/sentinel"
)

type Store struct {
	mu     sync.RWMutex
	states map[string]registry.State
}

func New() *Store {
	return &Store{states: make(map[string]registry.State)}
}

func (s *Store) Save(_ context.Context, state registry.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Code] = state
	return nil
}

func (s *Store) Find(_ context.Context, code string) (registry.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[code]
	if !ok {
		return registry.State{}, sentinel.ErrNotFound
	}
	return st, nil
}

func (s *Store) List(_ context.Context) ([]registry.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	return out, nil
}
