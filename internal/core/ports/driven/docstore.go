package driven

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// DocumentStore persists documents grouped by collection.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by collection and ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, collection, id string) (*domain.Document, error)

	// DeleteDocument removes a document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, collection, id string) error

	// ListDocuments returns every document of a collection ordered by ID.
	ListDocuments(ctx context.Context, collection string) ([]domain.Document, error)

	// ListDocumentsAfter returns up to limit documents with ID greater than afterID, ordered by ID.
	// An empty afterID starts from the beginning.
	ListDocumentsAfter(ctx context.Context, collection, afterID string, limit int) ([]domain.Document, error)
}
