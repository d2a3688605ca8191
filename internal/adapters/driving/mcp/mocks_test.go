package mcp

import (
	"context"

	"github.com/cuker/dockit/internal/core/domain"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	value     any
	err       error

	// setPath and setValue record the last SetValue call.
	setPath  string
	setValue any
}

func (m *mockDocumentService) Save(_ context.Context, _ *domain.Document) error {
	return m.err
}

func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockDocumentService) DotNotation(_ context.Context, _, _, _ string) (any, error) {
	return m.value, m.err
}

func (m *mockDocumentService) SetValue(_ context.Context, _, _, path string, value any) (*domain.Document, error) {
	m.setPath = path
	m.setValue = value
	return m.document, m.err
}

func (m *mockDocumentService) CopyToTemporary(_ context.Context, _, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) CommitTemporary(_ context.Context, _, _, _ string) (*domain.Document, error) {
	return m.document, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	indexes   []domain.RegisteredIndex
	documents []domain.Document
	values    []domain.IndexValue
	state     *domain.ReindexState
	err       error

	// conds records the conditions of the last Query call.
	conds []domain.Condition
}

func (m *mockIndexService) Register(
	_ context.Context,
	_ domain.QueryIndex,
	_ bool,
) (*domain.RegisteredIndex, domain.RegisterOutcome, error) {
	if len(m.indexes) == 0 {
		return nil, domain.RegisterCreated, m.err
	}
	return &m.indexes[0], domain.RegisterCreated, m.err
}

func (m *mockIndexService) Remove(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockIndexService) List(_ context.Context, _ string) ([]domain.RegisteredIndex, error) {
	return m.indexes, m.err
}

func (m *mockIndexService) Reindex(_ context.Context, _, _ string) (*domain.ReindexState, error) {
	return m.state, m.err
}

func (m *mockIndexService) Resume(_ context.Context, _, _ string) (*domain.ReindexState, error) {
	return m.state, m.err
}

func (m *mockIndexService) Query(
	_ context.Context,
	_, _ string,
	conds []domain.Condition,
) ([]domain.Document, error) {
	m.conds = conds
	return m.documents, m.err
}

func (m *mockIndexService) UniqueValues(_ context.Context, _, _, _ string) ([]domain.IndexValue, error) {
	return m.values, m.err
}
