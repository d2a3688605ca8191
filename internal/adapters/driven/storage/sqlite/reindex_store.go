package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// reindexStateStore implements driven.ReindexStateStore.
type reindexStateStore struct {
	store *Store
}

var _ driven.ReindexStateStore = (*reindexStateStore)(nil)

// Save stores or updates a checkpoint.
func (s *reindexStateStore) Save(ctx context.Context, state domain.ReindexState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO reindex_states (index_id, query_hash, cursor, processed, done, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(index_id) DO UPDATE SET
			query_hash = excluded.query_hash,
			cursor = excluded.cursor,
			processed = excluded.processed,
			done = excluded.done,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at
	`, state.IndexID, state.QueryHash, state.Cursor, state.Processed, state.Done,
		state.StartedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving reindex state: %w", err)
	}
	return nil
}

// Get retrieves the checkpoint of an index.
func (s *reindexStateStore) Get(ctx context.Context, indexID string) (*domain.ReindexState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT index_id, query_hash, cursor, processed, done, started_at, updated_at
		FROM reindex_states WHERE index_id = ?
	`, indexID)

	var state domain.ReindexState
	var startedAt, updatedAt sql.NullTime
	if err := row.Scan(&state.IndexID, &state.QueryHash, &state.Cursor, &state.Processed,
		&state.Done, &startedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning reindex state: %w", err)
	}
	state.StartedAt = timeOrZero(startedAt)
	state.UpdatedAt = timeOrZero(updatedAt)
	return &state, nil
}

// Delete removes the checkpoint of an index.
func (s *reindexStateStore) Delete(ctx context.Context, indexID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM reindex_states WHERE index_id = ?", indexID)
	if err != nil {
		return fmt.Errorf("deleting reindex state: %w", err)
	}
	return nil
}
