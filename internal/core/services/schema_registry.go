package services

import (
	"sort"
	"sync"

	"github.com/cuker/dockit/internal/core/domain"
)

// SchemaRegistry holds the declared schema of each collection.
// It is constructed by the application and passed to the services that need it.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*domain.Schema
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*domain.Schema)}
}

// Register validates and stores a schema, replacing any previous one for the collection.
func (r *SchemaRegistry) Register(s *domain.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Collection] = s
	return nil
}

// Unregister drops the schema of a collection.
func (r *SchemaRegistry) Unregister(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, collection)
}

// Get returns the schema of a collection.
func (r *SchemaRegistry) Get(collection string) (*domain.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[collection]
	return s, ok
}

// Collections lists collections with a registered schema.
func (r *SchemaRegistry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclaredKinds fills in the Kind of params that do not declare one,
// using the scalar field the param's path points at. Params whose path
// is not declared keep runtime classification.
func (r *SchemaRegistry) DeclaredKinds(q domain.QueryIndex) domain.QueryIndex {
	schema, ok := r.Get(q.Collection)
	if !ok {
		return q
	}
	params := make([]domain.IndexParam, len(q.Params))
	for i, p := range q.Params {
		params[i] = p
		if p.Kind != "" {
			continue
		}
		field, err := schema.FieldAt(p.Path)
		if err != nil {
			continue
		}
		if kind, ok := field.IndexKind(); ok {
			params[i].Kind = kind.String()
		}
	}
	q.Params = params
	return q
}
