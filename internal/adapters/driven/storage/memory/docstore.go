package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]domain.Document),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[doc.Collection]
	if !ok {
		docs = make(map[string]domain.Document)
		s.collections[doc.Collection] = docs
	}
	docs[doc.ID] = *doc.Clone()
	return nil
}

// GetDocument retrieves a document by collection and ID.
func (s *DocumentStore) GetDocument(_ context.Context, collection, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Clone(), nil
}

// DeleteDocument removes a document.
func (s *DocumentStore) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// ListDocuments returns every document of a collection ordered by ID.
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	return s.ListDocumentsAfter(ctx, collection, "", 0)
}

// ListDocumentsAfter returns up to limit documents with ID greater than afterID.
// A limit of zero or less returns every remaining document.
func (s *DocumentStore) ListDocumentsAfter(
	_ context.Context,
	collection, afterID string,
	limit int,
) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		if afterID == "" || id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	result := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		result = append(result, *doc.Clone())
	}
	return result, nil
}
