package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// documentRecord keeps the raw data undecoded so integers survive as int64.
type documentRecord struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Version    int             `json:"version"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (r *documentRecord) document() (*domain.Document, error) {
	data, err := domain.DecodeJSONObject(r.Data)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling data of %s: %w", r.ID, err)
	}
	return &domain.Document{
		ID:         r.ID,
		Collection: r.Collection,
		Version:    r.Version,
		Data:       data,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// documentStore implements driven.DocumentStore.
type documentStore struct {
	db *badger.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("marshalling data: %w", err)
	}
	rec := documentRecord{
		ID:         doc.ID,
		Collection: doc.Collection,
		Version:    doc.Version,
		Data:       data,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key(prefixDocument, doc.Collection, doc.ID), rec)
	})
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by collection and ID.
func (s *documentStore) GetDocument(_ context.Context, collection, id string) (*domain.Document, error) {
	var rec documentRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key(prefixDocument, collection, id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.document()
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(_ context.Context, collection, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(prefixDocument, collection, id))
	})
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListDocuments returns every document of a collection ordered by ID.
func (s *documentStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	return s.ListDocumentsAfter(ctx, collection, "", 0)
}

// ListDocumentsAfter returns up to limit documents with ID greater than afterID.
// A limit of zero or less returns every remaining document.
func (s *documentStore) ListDocumentsAfter(
	ctx context.Context,
	collection, afterID string,
	limit int,
) ([]domain.Document, error) {
	docs := []domain.Document{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix(prefixDocument, collection), afterID, func(_, val []byte) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			var rec documentRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return false, fmt.Errorf("unmarshalling document: %w", err)
			}
			doc, err := rec.document()
			if err != nil {
				return false, err
			}
			docs = append(docs, *doc)
			return limit <= 0 || len(docs) < limit, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}
