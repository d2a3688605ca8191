package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/logger"
)

// DocumentHooks receives document lifecycle events.
type DocumentHooks interface {
	// BeforeSave is called before a document is stored. An error aborts the save.
	BeforeSave(ctx context.Context, collection string, data map[string]any) error

	// OnSave is called after a document is stored.
	OnSave(ctx context.Context, collection, docID string, data map[string]any) error

	// OnDelete is called after a document is removed.
	OnDelete(ctx context.Context, collection, docID string) error
}

// Ensure RegisteredIndexManager implements the hooks.
var _ DocumentHooks = (*RegisteredIndexManager)(nil)

// RegisteredIndexManager owns the registered indexes of each collection and keeps
// per-document index rows in step with document saves and deletes.
//
// Evaluation runs inline with the save or delete that triggers it. Concurrent saves
// of the same document may interleave their row replacement.
type RegisteredIndexManager struct {
	indexes driven.IndexStore
	schemas *SchemaRegistry
	job     *ReindexJob
}

// NewRegisteredIndexManager creates a manager. schemas may be nil.
func NewRegisteredIndexManager(
	indexes driven.IndexStore,
	docs driven.DocumentStore,
	states driven.ReindexStateStore,
	schemas *SchemaRegistry,
	opts ReindexOptions,
) *RegisteredIndexManager {
	if schemas == nil {
		schemas = NewSchemaRegistry()
	}
	m := &RegisteredIndexManager{
		indexes: indexes,
		schemas: schemas,
	}
	m.job = NewReindexJob(docs, states, m, opts)
	return m
}

// Job returns the reindex job used by the manager.
func (m *RegisteredIndexManager) Job() *ReindexJob {
	return m.job
}

// Definition validates q and resolves param kinds from the collection schema.
func (m *RegisteredIndexManager) Definition(q domain.QueryIndex) (domain.QueryIndex, error) {
	if err := q.Validate(); err != nil {
		return domain.QueryIndex{}, err
	}
	return m.schemas.DeclaredKinds(q), nil
}

// RegisterIndex registers q. An identical definition is a no-op. A changed definition
// purges every row of the index. In both the created and changed cases every document
// of the collection is re-evaluated, unless deferred, in which case only a fresh
// checkpoint is recorded for a later Resume.
func (m *RegisteredIndexManager) RegisterIndex(
	ctx context.Context,
	q domain.QueryIndex,
	deferred bool,
) (*domain.RegisteredIndex, domain.RegisterOutcome, error) {
	def, err := m.Definition(q)
	if err != nil {
		return nil, 0, err
	}
	// The hash covers the definition as given. Kinds filled in from a schema
	// live only in the stored definition.
	name := q.IndexName()
	hash := q.Hash()
	log := logger.Logger().With().Str("collection", def.Collection).Str("index", name).Logger()

	idx, err := m.indexes.GetRegisteredIndex(ctx, def.Collection, name)
	var outcome domain.RegisterOutcome
	switch {
	case errors.Is(err, domain.ErrNotFound):
		idx = &domain.RegisteredIndex{
			Name:       name,
			Collection: def.Collection,
			QueryHash:  hash,
			Definition: def,
		}
		outcome = domain.RegisterCreated
	case err != nil:
		return nil, 0, fmt.Errorf("get registered index: %w", err)
	case idx.QueryHash == hash && !m.kindsChanged(idx.Definition, def):
		log.Debug().Msg("index definition unchanged")
		return idx, domain.RegisterUnchanged, nil
	default:
		if err := m.indexes.ClearIndexRows(ctx, idx.ID); err != nil {
			return nil, 0, fmt.Errorf("purge index rows: %w", err)
		}
		log.Info().Str("old_hash", idx.QueryHash).Str("new_hash", hash).Msg("index definition changed, rows purged")
		idx.QueryHash = hash
		idx.Definition = def
		outcome = domain.RegisterChanged
	}

	if err := m.indexes.SaveRegisteredIndex(ctx, idx); err != nil {
		return nil, 0, fmt.Errorf("save registered index: %w", err)
	}
	if _, err := m.job.Start(ctx, idx); err != nil {
		return nil, 0, err
	}
	if deferred {
		log.Info().Msg("reindex deferred")
		return idx, outcome, nil
	}
	if _, err := m.job.Run(ctx, idx); err != nil {
		return idx, outcome, err
	}
	return idx, outcome, nil
}

// kindsChanged reports whether the collection schema now declares different
// param kinds than the stored definition. Without a schema the stored kinds stand.
func (m *RegisteredIndexManager) kindsChanged(stored, def domain.QueryIndex) bool {
	if _, ok := m.schemas.Get(def.Collection); !ok {
		return false
	}
	if len(stored.Params) != len(def.Params) {
		return true
	}
	for i := range def.Params {
		if stored.Params[i].Kind != def.Params[i].Kind {
			return true
		}
	}
	return false
}

// RemoveIndex deletes the registered index named by q.
func (m *RegisteredIndexManager) RemoveIndex(ctx context.Context, q domain.QueryIndex) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return m.RemoveIndexByName(ctx, q.Collection, q.IndexName())
}

// RemoveIndexByName deletes a registered index, its index documents, rows and checkpoint.
func (m *RegisteredIndexManager) RemoveIndexByName(ctx context.Context, collection, name string) error {
	idx, err := m.indexes.GetRegisteredIndex(ctx, collection, name)
	if err != nil {
		return err
	}
	if err := m.indexes.DeleteRegisteredIndex(ctx, collection, name); err != nil {
		return fmt.Errorf("delete registered index: %w", err)
	}
	if err := m.job.Discard(ctx, idx.ID); err != nil {
		return err
	}
	logger.Debug("Removed index %s from %s", name, collection)
	return nil
}

// BeforeSave builds the rows every index of the collection would hold for data
// without writing them, so a value that cannot be indexed fails before the
// document is stored.
func (m *RegisteredIndexManager) BeforeSave(ctx context.Context, collection string, data map[string]any) error {
	indexes, err := m.indexes.ListRegisteredIndexes(ctx, collection)
	if err != nil {
		return fmt.Errorf("list registered indexes: %w", err)
	}
	for i := range indexes {
		if _, _, err := evaluate(indexes[i].Definition, data); err != nil {
			return fmt.Errorf("index %s: %w", indexes[i].Name, err)
		}
	}
	return nil
}

// OnSave re-evaluates every index of the collection against the saved data.
func (m *RegisteredIndexManager) OnSave(ctx context.Context, collection, docID string, data map[string]any) error {
	indexes, err := m.indexes.ListRegisteredIndexes(ctx, collection)
	if err != nil {
		return fmt.Errorf("list registered indexes: %w", err)
	}
	for i := range indexes {
		idx := &indexes[i]
		if _, err := m.EvaluateQueryIndex(ctx, idx, idx.Definition, docID, data); err != nil {
			return err
		}
	}
	return nil
}

// OnDelete removes the document's index documents across the collection's indexes.
func (m *RegisteredIndexManager) OnDelete(ctx context.Context, collection, docID string) error {
	if err := m.indexes.DeleteDocumentIndexes(ctx, collection, docID); err != nil {
		return fmt.Errorf("delete document indexes: %w", err)
	}
	return nil
}

// EvaluateQueryIndex decides whether the document belongs to the index and, if it does,
// replaces its index rows. It reports whether the document is included. Every row is
// built before the first write, so a param that fails leaves the stored rows as they were.
func (m *RegisteredIndexManager) EvaluateQueryIndex(
	ctx context.Context,
	idx *domain.RegisteredIndex,
	q domain.QueryIndex,
	docID string,
	data map[string]any,
) (bool, error) {
	included, rows, err := evaluate(q, data)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", idx.Name, err)
	}
	if !included {
		if err := m.indexes.DeleteIndexDocument(ctx, idx.ID, docID); err != nil {
			return false, fmt.Errorf("index %s: remove document %s: %w", idx.Name, docID, err)
		}
		return false, nil
	}

	indexDoc, _, err := m.indexes.GetOrCreateIndexDocument(ctx, idx.ID, docID)
	if err != nil {
		return false, fmt.Errorf("index %s: index document %s: %w", idx.Name, docID, err)
	}

	for _, row := range rows {
		row.IndexDocumentID = indexDoc.ID
		row.DocID = indexDoc.DocID
		if err := m.indexes.PutIndexRow(ctx, row); err != nil {
			return false, fmt.Errorf("index %s: store param %s: %w", idx.Name, row.Param, err)
		}
	}
	return true, nil
}

// evaluate applies the filters of q and, for an included document, builds one
// row per param.
func evaluate(q domain.QueryIndex, data map[string]any) (bool, []domain.IndexRow, error) {
	included, err := matchesFilters(q, data)
	if err != nil || !included {
		return false, nil, err
	}
	rows := make([]domain.IndexRow, 0, len(q.Params))
	for _, param := range q.Params {
		row, err := buildRow(param, data)
		if err != nil {
			return false, nil, fmt.Errorf("param %s: %w", param.Key, err)
		}
		rows = append(rows, row)
	}
	return true, rows, nil
}

// matchesFilters applies inclusions then exclusions. An inclusion that does not
// resolve fails; an exclusion that does not resolve does not apply.
func matchesFilters(q domain.QueryIndex, data map[string]any) (bool, error) {
	for _, inc := range q.Inclusions {
		value, err := domain.Resolve(data, domain.ParseDotPath(inc.Path))
		if domain.IsDotPathNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !domain.ValuesEqual(value, inc.Value) {
			return false, nil
		}
	}
	for _, exc := range q.Exclusions {
		value, err := domain.Resolve(data, domain.ParseDotPath(exc.Path))
		if domain.IsDotPathNotFound(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		if domain.ValuesEqual(value, exc.Value) {
			return false, nil
		}
	}
	return true, nil
}

func buildRow(param domain.IndexParam, data map[string]any) (domain.IndexRow, error) {
	row := domain.IndexRow{Param: param.Key}

	value, err := domain.Resolve(data, domain.ParseDotPath(param.Path))
	switch {
	case domain.IsDotPathNotFound(err):
		value = nil
		row.Absent = true
	case err != nil:
		return row, err
	}

	var iv domain.IndexValue
	if kind, declared := param.DeclaredKind(); declared {
		iv, err = domain.ClassifyAs(value, kind)
		row.Partition = kind
	} else {
		iv, err = domain.Classify(value)
		row.Partition = iv.Kind
	}
	if err != nil {
		return row, err
	}
	row.Value = iv
	return row, nil
}
