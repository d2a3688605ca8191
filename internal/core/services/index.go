package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/core/ports/driving"
	"github.com/cuker/dockit/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService exposes registration and querying of registered indexes.
type IndexService struct {
	manager    *RegisteredIndexManager
	indexStore driven.IndexStore
	docStore   driven.DocumentStore
}

// NewIndexService creates a new index service.
func NewIndexService(
	manager *RegisteredIndexManager,
	indexStore driven.IndexStore,
	docStore driven.DocumentStore,
) *IndexService {
	return &IndexService{
		manager:    manager,
		indexStore: indexStore,
		docStore:   docStore,
	}
}

// Register registers or refreshes a query index.
func (s *IndexService) Register(
	ctx context.Context,
	q domain.QueryIndex,
	deferred bool,
) (*domain.RegisteredIndex, domain.RegisterOutcome, error) {
	logger.Section("Index Registration")
	idx, outcome, err := s.manager.RegisterIndex(ctx, q, deferred)
	if err != nil {
		return idx, outcome, err
	}
	logger.Info("Index %s on %s: %s", idx.Name, idx.Collection, outcome)
	return idx, outcome, nil
}

// Remove deletes a registered index and its rows.
func (s *IndexService) Remove(ctx context.Context, collection, name string) error {
	err := s.manager.RemoveIndexByName(ctx, collection, name)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s on %s", domain.ErrIndexNotRegistered, name, collection)
	}
	return err
}

// List returns the indexes registered against a collection.
func (s *IndexService) List(ctx context.Context, collection string) ([]domain.RegisteredIndex, error) {
	return s.indexStore.ListRegisteredIndexes(ctx, collection)
}

// Reindex purges the index rows and re-evaluates every document.
func (s *IndexService) Reindex(ctx context.Context, collection, name string) (*domain.ReindexState, error) {
	idx, err := s.lookup(ctx, collection, name)
	if err != nil {
		return nil, err
	}
	if err := s.indexStore.ClearIndexRows(ctx, idx.ID); err != nil {
		return nil, fmt.Errorf("purge index rows: %w", err)
	}
	job := s.manager.Job()
	if _, err := job.Start(ctx, idx); err != nil {
		return nil, err
	}
	return job.Run(ctx, idx)
}

// Resume continues an interrupted reindex from its checkpoint.
func (s *IndexService) Resume(ctx context.Context, collection, name string) (*domain.ReindexState, error) {
	idx, err := s.lookup(ctx, collection, name)
	if err != nil {
		return nil, err
	}
	job := s.manager.Job()
	if _, err := job.State(ctx, idx.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no reindex checkpoint for %s: %w", name, err)
		}
		return nil, err
	}
	return job.Run(ctx, idx)
}

// Query returns the documents matching every condition, in index order.
func (s *IndexService) Query(
	ctx context.Context,
	collection, name string,
	conds []domain.Condition,
) ([]domain.Document, error) {
	idx, err := s.lookup(ctx, collection, name)
	if err != nil {
		return nil, err
	}
	for _, c := range conds {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := idx.Definition.Param(c.Param); !ok {
			return nil, fmt.Errorf("%w: index %s has no param %q", domain.ErrInvalidInput, name, c.Param)
		}
	}
	if err := s.ensureBuilt(ctx, idx); err != nil {
		return nil, err
	}

	logger.Debug("Querying %s on %s with %d conditions", name, collection, len(conds))
	ids, err := s.indexStore.FindDocuments(ctx, idx.ID, conds)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docStore.GetDocument(ctx, collection, id)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Index %s references missing document %s", name, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// UniqueValues returns the distinct values of a param.
func (s *IndexService) UniqueValues(ctx context.Context, collection, name, param string) ([]domain.IndexValue, error) {
	idx, err := s.lookup(ctx, collection, name)
	if err != nil {
		return nil, err
	}
	if _, ok := idx.Definition.Param(param); !ok {
		return nil, fmt.Errorf("%w: index %s has no param %q", domain.ErrInvalidInput, name, param)
	}
	if err := s.ensureBuilt(ctx, idx); err != nil {
		return nil, err
	}
	return s.indexStore.UniqueValues(ctx, idx.ID, param)
}

func (s *IndexService) lookup(ctx context.Context, collection, name string) (*domain.RegisteredIndex, error) {
	idx, err := s.indexStore.GetRegisteredIndex(ctx, collection, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrIndexNotRegistered, name, collection)
	}
	return idx, err
}

// ensureBuilt refuses to answer from an index whose reindex pass has not completed.
func (s *IndexService) ensureBuilt(ctx context.Context, idx *domain.RegisteredIndex) error {
	state, err := s.manager.Job().State(ctx, idx.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !state.Done && state.QueryHash == idx.QueryHash {
		return fmt.Errorf("%w: %s has processed %d documents", domain.ErrReindexInProgress, idx.Name, state.Processed)
	}
	return nil
}
