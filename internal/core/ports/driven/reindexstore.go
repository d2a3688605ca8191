package driven

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// ReindexStateStore persists reindex checkpoints.
type ReindexStateStore interface {
	// Save stores or updates a checkpoint.
	Save(ctx context.Context, state domain.ReindexState) error

	// Get retrieves the checkpoint of an index.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, indexID string) (*domain.ReindexState, error)

	// Delete removes the checkpoint of an index.
	Delete(ctx context.Context, indexID string) error
}
