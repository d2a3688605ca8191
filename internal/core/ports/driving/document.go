package driving

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// DocumentService manages documents and keeps their index rows current.
type DocumentService interface {
	// Save stores a document and re-evaluates the collection's indexes against it.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document.
	Get(ctx context.Context, collection, id string) (*domain.Document, error)

	// List returns every document of a collection.
	List(ctx context.Context, collection string) ([]domain.Document, error)

	// Delete removes a document and its index documents.
	Delete(ctx context.Context, collection, id string) error

	// DotNotation resolves a dotted path inside a stored document.
	DotNotation(ctx context.Context, collection, id, path string) (any, error)

	// SetValue writes a value at a dotted path and saves the document.
	SetValue(ctx context.Context, collection, id, path string, value any) (*domain.Document, error)

	// CopyToTemporary stages a copy of a document in the temporary collection.
	CopyToTemporary(ctx context.Context, collection, id string) (*domain.Document, error)

	// CommitTemporary writes a staged document into collection under targetID
	// (a new document when targetID is empty) and removes the staged copy.
	CommitTemporary(ctx context.Context, tempID, collection, targetID string) (*domain.Document, error)
}
