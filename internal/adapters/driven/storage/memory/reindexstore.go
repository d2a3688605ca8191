package memory

import (
	"context"
	"sync"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure ReindexStateStore implements the interface.
var _ driven.ReindexStateStore = (*ReindexStateStore)(nil)

// ReindexStateStore is an in-memory implementation of driven.ReindexStateStore.
type ReindexStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.ReindexState
}

// NewReindexStateStore creates a new in-memory checkpoint store.
func NewReindexStateStore() *ReindexStateStore {
	return &ReindexStateStore{
		states: make(map[string]domain.ReindexState),
	}
}

// Save stores or updates a checkpoint.
func (s *ReindexStateStore) Save(_ context.Context, state domain.ReindexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.IndexID] = state
	return nil
}

// Get retrieves the checkpoint of an index.
func (s *ReindexStateStore) Get(_ context.Context, indexID string) (*domain.ReindexState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[indexID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Delete removes the checkpoint of an index.
func (s *ReindexStateStore) Delete(_ context.Context, indexID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, indexID)
	return nil
}
