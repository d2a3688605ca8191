package driven

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// IndexStore persists registered indexes and their materialised rows.
// Rows are kept in partitions selected by IndexRow.Partition.
type IndexStore interface {
	// GetRegisteredIndex retrieves an index by collection and name.
	// Returns domain.ErrNotFound if it does not exist.
	GetRegisteredIndex(ctx context.Context, collection, name string) (*domain.RegisteredIndex, error)

	// SaveRegisteredIndex creates or updates the index keyed by (Collection, Name).
	// An empty ID is assigned on create.
	SaveRegisteredIndex(ctx context.Context, idx *domain.RegisteredIndex) error

	// DeleteRegisteredIndex removes the index with its index documents and rows.
	DeleteRegisteredIndex(ctx context.Context, collection, name string) error

	// ListRegisteredIndexes returns the indexes registered against a collection.
	ListRegisteredIndexes(ctx context.Context, collection string) ([]domain.RegisteredIndex, error)

	// GetOrCreateIndexDocument returns the index document for (indexID, docID),
	// creating it when missing. The boolean reports whether it was created.
	GetOrCreateIndexDocument(ctx context.Context, indexID, docID string) (*domain.IndexDocument, bool, error)

	// DeleteIndexDocument removes the index document for (indexID, docID) and its rows.
	DeleteIndexDocument(ctx context.Context, indexID, docID string) error

	// DeleteDocumentIndexes removes every index document of docID across the collection's indexes.
	DeleteDocumentIndexes(ctx context.Context, collection, docID string) error

	// ListIndexDocuments returns the index documents of an index.
	ListIndexDocuments(ctx context.Context, indexID string) ([]domain.IndexDocument, error)

	// ClearIndexRows removes every index document and every row, in every partition, of an index.
	ClearIndexRows(ctx context.Context, indexID string) error

	// PutIndexRow stores row, replacing any prior row for (IndexDocumentID, Param) in any partition.
	PutIndexRow(ctx context.Context, row domain.IndexRow) error

	// ListIndexRows returns the rows of an index document.
	ListIndexRows(ctx context.Context, indexDocumentID string) ([]domain.IndexRow, error)

	// UniqueValues returns the distinct values stored for a param of an index.
	UniqueValues(ctx context.Context, indexID, param string) ([]domain.IndexValue, error)

	// FindDocuments returns the IDs of documents whose rows satisfy every condition.
	FindDocuments(ctx context.Context, indexID string, conds []domain.Condition) ([]string, error)
}
