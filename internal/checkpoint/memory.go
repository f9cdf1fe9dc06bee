package checkpoint

import (
	"context"
	"sync"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]enrich.CompanyResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]enrich.CompanyResult)}
}

func (s *MemoryStore) Load(_ context.Context) (map[string]enrich.CompanyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]enrich.CompanyResult, len(s.results))
	for id, res := range s.results {
		out[id] = res
	}
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, result enrich.CompanyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.results[result.CompanyID]; ok && prev.Status == enrich.StatusDone {
		return nil
	}
	s.results[result.CompanyID] = result
	return nil
}

func (s *MemoryStore) IsDone(_ context.Context, companyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[companyID]
	return ok && res.Status == enrich.StatusDone, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
