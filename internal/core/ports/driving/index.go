package driving

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// IndexService registers query indexes and answers queries against them.
type IndexService interface {
	// Register registers or refreshes a query index.
	// When deferred, the reindex pass is checkpointed but not run.
	Register(ctx context.Context, q domain.QueryIndex, deferred bool) (*domain.RegisteredIndex, domain.RegisterOutcome, error)

	// Remove deletes a registered index and its rows.
	Remove(ctx context.Context, collection, name string) error

	// List returns the indexes registered against a collection.
	List(ctx context.Context, collection string) ([]domain.RegisteredIndex, error)

	// Reindex rebuilds an index from scratch.
	Reindex(ctx context.Context, collection, name string) (*domain.ReindexState, error)

	// Resume continues an interrupted reindex from its checkpoint.
	Resume(ctx context.Context, collection, name string) (*domain.ReindexState, error)

	// Query returns the documents matching every condition.
	Query(ctx context.Context, collection, name string, conds []domain.Condition) ([]domain.Document, error)

	// UniqueValues returns the distinct values of a param, for faceting.
	UniqueValues(ctx context.Context, collection, name, param string) ([]domain.IndexValue, error)
}
