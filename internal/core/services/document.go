package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/core/ports/driving"
	"github.com/cuker/dockit/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages documents and notifies index hooks of every write.
type DocumentService struct {
	docStore driven.DocumentStore
	hooks    DocumentHooks
	now      func() time.Time
}

// NewDocumentService creates a new document service. hooks may be nil.
func NewDocumentService(docStore driven.DocumentStore, hooks DocumentHooks) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		hooks:    hooks,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save stores a document. A missing ID is generated. The version is bumped
// and the collection's indexes are re-evaluated against the saved data.
func (s *DocumentService) Save(ctx context.Context, doc *domain.Document) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	if doc.Collection == "" {
		return fmt.Errorf("%w: document has no collection", domain.ErrInvalidInput)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Data == nil {
		doc.Data = make(map[string]any)
	} else {
		doc.Data = domain.Normalize(doc.Data).(map[string]any)
	}

	now := s.now()
	existing, err := s.docStore.GetDocument(ctx, doc.Collection, doc.ID)
	switch {
	case err == nil:
		doc.CreatedAt = existing.CreatedAt
		doc.Version = existing.Version + 1
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
		doc.CreatedAt = now
		doc.Version = 1
	default:
		return fmt.Errorf("get document: %w", err)
	}
	doc.UpdatedAt = now

	if s.hooks != nil {
		if err := s.hooks.BeforeSave(ctx, doc.Collection, doc.Data); err != nil {
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if s.hooks != nil {
		if err := s.hooks.OnSave(ctx, doc.Collection, doc.ID, doc.Data); err != nil {
			s.restore(ctx, doc, existing)
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// restore puts back the document that was stored before a save whose index
// update failed. A nil previous means the save created the document.
func (s *DocumentService) restore(ctx context.Context, doc, previous *domain.Document) {
	log := logger.Logger().With().Str("collection", doc.Collection).Str("id", doc.ID).Logger()
	if previous == nil {
		if err := s.docStore.DeleteDocument(ctx, doc.Collection, doc.ID); err != nil {
			log.Warn().Err(err).Msg("removing document after failed index update")
			return
		}
		if err := s.hooks.OnDelete(ctx, doc.Collection, doc.ID); err != nil {
			log.Warn().Err(err).Msg("removing index rows after failed index update")
		}
		return
	}
	if err := s.docStore.SaveDocument(ctx, previous); err != nil {
		log.Warn().Err(err).Msg("restoring document after failed index update")
		return
	}
	if err := s.hooks.OnSave(ctx, previous.Collection, previous.ID, previous.Data); err != nil {
		log.Warn().Err(err).Msg("restoring index rows after failed index update")
	}
}

// Get retrieves a document.
func (s *DocumentService) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, collection, id)
}

// List returns every document of a collection.
func (s *DocumentService) List(ctx context.Context, collection string) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx, collection)
}

// Delete removes a document and its index documents.
func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetDocument(ctx, collection, id); err != nil {
		return err
	}
	if err := s.docStore.DeleteDocument(ctx, collection, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if s.hooks != nil {
		if err := s.hooks.OnDelete(ctx, collection, id); err != nil {
			return err
		}
	}
	return nil
}

// DotNotation resolves a dotted path inside a stored document.
func (s *DocumentService) DotNotation(ctx context.Context, collection, id, path string) (any, error) {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return doc.DotNotation(path)
}

// SetValue writes a value at a dotted path and saves the document.
func (s *DocumentService) SetValue(ctx context.Context, collection, id, path string, value any) (*domain.Document, error) {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := doc.SetValue(path, value); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CopyToTemporary stages a copy of a document in the temporary collection.
func (s *DocumentService) CopyToTemporary(ctx context.Context, collection, id string) (*domain.Document, error) {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	temp := &domain.Document{
		Collection: domain.TemporaryCollection,
		Data:       withoutID(doc.Clone().Data),
	}
	if err := s.Save(ctx, temp); err != nil {
		return nil, err
	}
	return temp, nil
}

// CommitTemporary writes a staged document into collection. An empty targetID
// creates a new document. The staged copy is removed afterwards.
func (s *DocumentService) CommitTemporary(ctx context.Context, tempID, collection, targetID string) (*domain.Document, error) {
	temp, err := s.Get(ctx, domain.TemporaryCollection, tempID)
	if err != nil {
		return nil, fmt.Errorf("get temporary document: %w", err)
	}
	doc := &domain.Document{
		ID:         targetID,
		Collection: collection,
		Data:       withoutID(temp.Clone().Data),
	}
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, domain.TemporaryCollection, tempID); err != nil {
		return nil, fmt.Errorf("delete temporary document: %w", err)
	}
	return doc, nil
}

func withoutID(data map[string]any) map[string]any {
	delete(data, domain.IDField)
	return data
}
