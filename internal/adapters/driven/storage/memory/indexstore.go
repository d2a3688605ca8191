package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

type indexKey struct {
	collection string
	name       string
}

type indexDocKey struct {
	indexID string
	docID   string
}

// IndexStore is an in-memory implementation of driven.IndexStore.
// Rows are keyed by (index document, param), so a row occupies exactly one partition.
type IndexStore struct {
	mu        sync.RWMutex
	indexes   map[indexKey]domain.RegisteredIndex
	indexDocs map[indexDocKey]domain.IndexDocument
	rows      map[string]map[string]domain.IndexRow
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		indexes:   make(map[indexKey]domain.RegisteredIndex),
		indexDocs: make(map[indexDocKey]domain.IndexDocument),
		rows:      make(map[string]map[string]domain.IndexRow),
	}
}

// GetRegisteredIndex retrieves an index by collection and name.
func (s *IndexStore) GetRegisteredIndex(_ context.Context, collection, name string) (*domain.RegisteredIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[indexKey{collection, name}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &idx, nil
}

// SaveRegisteredIndex creates or updates an index.
func (s *IndexStore) SaveRegisteredIndex(_ context.Context, idx *domain.RegisteredIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := indexKey{idx.Collection, idx.Name}
	now := time.Now().UTC()
	if existing, ok := s.indexes[key]; ok {
		idx.ID = existing.ID
		idx.CreatedAt = existing.CreatedAt
	} else {
		if idx.ID == "" {
			idx.ID = uuid.New().String()
		}
		idx.CreatedAt = now
	}
	idx.UpdatedAt = now
	s.indexes[key] = *idx
	return nil
}

// DeleteRegisteredIndex removes an index with its index documents and rows.
func (s *IndexStore) DeleteRegisteredIndex(_ context.Context, collection, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := indexKey{collection, name}
	idx, ok := s.indexes[key]
	if !ok {
		return nil
	}
	s.clearLocked(idx.ID)
	delete(s.indexes, key)
	return nil
}

// ListRegisteredIndexes returns the indexes of a collection ordered by name.
func (s *IndexStore) ListRegisteredIndexes(_ context.Context, collection string) ([]domain.RegisteredIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.RegisteredIndex
	for key, idx := range s.indexes {
		if key.collection == collection {
			result = append(result, idx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetOrCreateIndexDocument returns the index document for (indexID, docID).
func (s *IndexStore) GetOrCreateIndexDocument(
	_ context.Context,
	indexID, docID string,
) (*domain.IndexDocument, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := indexDocKey{indexID, docID}
	if doc, ok := s.indexDocs[key]; ok {
		return &doc, false, nil
	}
	doc := domain.IndexDocument{
		ID:      uuid.New().String(),
		IndexID: indexID,
		DocID:   docID,
	}
	s.indexDocs[key] = doc
	return &doc, true, nil
}

// DeleteIndexDocument removes an index document and its rows.
func (s *IndexStore) DeleteIndexDocument(_ context.Context, indexID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteIndexDocLocked(indexDocKey{indexID, docID})
	return nil
}

// DeleteDocumentIndexes removes the index documents of docID across a collection's indexes.
func (s *IndexStore) DeleteDocumentIndexes(_ context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, idx := range s.indexes {
		if key.collection == collection {
			s.deleteIndexDocLocked(indexDocKey{idx.ID, docID})
		}
	}
	return nil
}

// ListIndexDocuments returns the index documents of an index ordered by document ID.
func (s *IndexStore) ListIndexDocuments(_ context.Context, indexID string) ([]domain.IndexDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexDocsLocked(indexID), nil
}

// ClearIndexRows removes every index document and row of an index.
func (s *IndexStore) ClearIndexRows(_ context.Context, indexID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(indexID)
	return nil
}

// PutIndexRow stores row, replacing any prior row for the same param.
func (s *IndexStore) PutIndexRow(_ context.Context, row domain.IndexRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	params, ok := s.rows[row.IndexDocumentID]
	if !ok {
		params = make(map[string]domain.IndexRow)
		s.rows[row.IndexDocumentID] = params
	}
	params[row.Param] = row
	return nil
}

// ListIndexRows returns the rows of an index document ordered by param.
func (s *IndexStore) ListIndexRows(_ context.Context, indexDocumentID string) ([]domain.IndexRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	params := s.rows[indexDocumentID]
	result := make([]domain.IndexRow, 0, len(params))
	for _, row := range params {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Param < result[j].Param })
	return result, nil
}

// UniqueValues returns the distinct values of a param, ordered.
func (s *IndexStore) UniqueValues(_ context.Context, indexID, param string) ([]domain.IndexValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var values []domain.IndexValue
	for _, doc := range s.indexDocsLocked(indexID) {
		row, ok := s.rows[doc.ID][param]
		if !ok {
			continue
		}
		if !containsValue(values, row.Value) {
			values = append(values, row.Value)
		}
	}
	domain.SortValues(values)
	return values, nil
}

// FindDocuments returns the IDs of documents whose rows satisfy every condition.
func (s *IndexStore) FindDocuments(_ context.Context, indexID string, conds []domain.Condition) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, doc := range s.indexDocsLocked(indexID) {
		if s.matchesLocked(doc.ID, conds) {
			ids = append(ids, doc.DocID)
		}
	}
	return ids, nil
}

func (s *IndexStore) matchesLocked(indexDocID string, conds []domain.Condition) bool {
	params := s.rows[indexDocID]
	for _, c := range conds {
		row, ok := params[c.Param]
		if !ok || !c.Matches(row) {
			return false
		}
	}
	return true
}

func (s *IndexStore) indexDocsLocked(indexID string) []domain.IndexDocument {
	var result []domain.IndexDocument
	for key, doc := range s.indexDocs {
		if key.indexID == indexID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DocID < result[j].DocID })
	return result
}

func (s *IndexStore) deleteIndexDocLocked(key indexDocKey) {
	doc, ok := s.indexDocs[key]
	if !ok {
		return
	}
	delete(s.rows, doc.ID)
	delete(s.indexDocs, key)
}

func (s *IndexStore) clearLocked(indexID string) {
	for key := range s.indexDocs {
		if key.indexID == indexID {
			s.deleteIndexDocLocked(key)
		}
	}
}

func containsValue(values []domain.IndexValue, v domain.IndexValue) bool {
	for _, existing := range values {
		if existing.Kind == v.Kind && existing.Equal(v) {
			return true
		}
	}
	return false
}
