package services

import (
	"context"
	"fmt"
	"io"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/core/ports/driving"
	"github.com/cuker/dockit/internal/logger"
)

// Ensure ManifestService implements the interface.
var _ driving.ManifestService = (*ManifestService)(nil)

// ManifestService loads and dumps fixture manifests.
type ManifestService struct {
	codec      driven.ManifestCodec
	schemas    *SchemaRegistry
	documents  *DocumentService
	manager    *RegisteredIndexManager
	indexStore driven.IndexStore
}

// NewManifestService creates a new manifest service.
func NewManifestService(
	codec driven.ManifestCodec,
	schemas *SchemaRegistry,
	documents *DocumentService,
	manager *RegisteredIndexManager,
	indexStore driven.IndexStore,
) *ManifestService {
	return &ManifestService{
		codec:      codec,
		schemas:    schemas,
		documents:  documents,
		manager:    manager,
		indexStore: indexStore,
	}
}

// Load applies a manifest: schemas first so index params pick up declared kinds,
// then documents, then indexes.
func (s *ManifestService) Load(ctx context.Context, r io.Reader) (*domain.ManifestResult, error) {
	if s.codec == nil {
		return nil, domain.ErrNotImplemented
	}
	m, err := s.codec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return s.Apply(ctx, m)
}

// Apply loads an already decoded manifest.
func (s *ManifestService) Apply(ctx context.Context, m *domain.Manifest) (*domain.ManifestResult, error) {
	result := &domain.ManifestResult{}

	for _, schema := range m.Schemas {
		if err := s.schemas.Register(schema); err != nil {
			return result, fmt.Errorf("schema %s: %w", schema.Collection, err)
		}
		result.Schemas++
	}

	for i := range m.Documents {
		doc := m.Documents[i]
		if err := s.documents.Save(ctx, &doc); err != nil {
			return result, fmt.Errorf("document %s/%s: %w", doc.Collection, doc.ID, err)
		}
		result.Documents++
	}

	for _, q := range m.Indexes {
		if _, _, err := s.manager.RegisterIndex(ctx, q, false); err != nil {
			return result, fmt.Errorf("index %s: %w", q.IndexName(), err)
		}
		result.Indexes++
	}

	logger.Info("Loaded manifest: %d schemas, %d documents, %d indexes",
		result.Schemas, result.Documents, result.Indexes)
	return result, nil
}

// Dump writes the schemas, documents and index definitions of the given collections.
func (s *ManifestService) Dump(ctx context.Context, w io.Writer, collections []string) error {
	if s.codec == nil {
		return domain.ErrNotImplemented
	}
	m := &domain.Manifest{}
	for _, collection := range collections {
		if schema, ok := s.schemas.Get(collection); ok {
			m.Schemas = append(m.Schemas, schema)
		}
		docs, err := s.documents.List(ctx, collection)
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		m.Documents = append(m.Documents, docs...)

		indexes, err := s.indexStore.ListRegisteredIndexes(ctx, collection)
		if err != nil {
			return fmt.Errorf("list indexes of %s: %w", collection, err)
		}
		for i := range indexes {
			def := indexes[i].Definition
			def.Name = indexes[i].Name
			m.Indexes = append(m.Indexes, def)
		}
	}
	return s.codec.Encode(w, m)
}
