// Package memory provides the in-memory sandbox provisioning store. It keeps
// records past their window; expiry is the service's responsibility.
package memory

import (
	"context"
	"sync"

	"dcbgate/internal/sandbox"
	"dcbgate/pkg/sentinel"
)

type Store struct {
	mu         sync.RWMutex
	provisions map[string]sandbox.Provision
}

func New() *Store {
	return &Store{provisions: make(map[string]sandbox.Provision)}
}

func (s *Store) Save(_ context.Context, p sandbox.Provision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provisions[p.MSISDN] = p
	return nil
}

func (s *Store) Find(_ context.Context, msisdn string) (sandbox.Provision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.provisions[msisdn]
	if !ok {
		return sandbox.Provision{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *Store) Delete(_ context.Context, msisdn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.provisions[msisdn]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.provisions, msisdn)
	return nil
}
