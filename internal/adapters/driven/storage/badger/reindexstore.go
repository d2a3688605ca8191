package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// reindexStateStore implements driven.ReindexStateStore.
type reindexStateStore struct {
	db *badger.DB
}

var _ driven.ReindexStateStore = (*reindexStateStore)(nil)

// Save stores or updates a checkpoint.
func (s *reindexStateStore) Save(_ context.Context, state domain.ReindexState) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key(prefixReindexState, state.IndexID), state)
	})
	if err != nil {
		return fmt.Errorf("saving reindex state: %w", err)
	}
	return nil
}

// Get retrieves the checkpoint of an index.
func (s *reindexStateStore) Get(_ context.Context, indexID string) (*domain.ReindexState, error) {
	var state domain.ReindexState
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key(prefixReindexState, indexID), &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Delete removes the checkpoint of an index.
func (s *reindexStateStore) Delete(_ context.Context, indexID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(prefixReindexState, indexID))
	})
}
