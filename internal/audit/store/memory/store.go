// Package memory provides the in-memory audit store used in tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"

	"dcbgate/internal/audit"
)

type Store struct {
	mu      sync.RWMutex
	records []audit.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *Store) ListByOperator(_ context.Context, operatorCode string, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	// Newest first.
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if operatorCode != "" && r.OperatorCode != operatorCode {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every record in emission order; test helper.
func (s *Store) All() []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Record, len(s.records))
	copy(out, s.records)
	return out
}
