package store

import (
	"context"
	"sync"

	"github.com/sells-group/journey-mapper/internal/model"
)

// MemoryStore keeps mappings in process memory. Values are cloned on the way
// in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]model.StageMapping
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]model.StageMapping)}
}

func (s *MemoryStore) Get(_ context.Context, tenantID string) (model.StageMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[tenantID]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, tenantID string, m model.StageMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[tenantID] = m.Clone()
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
