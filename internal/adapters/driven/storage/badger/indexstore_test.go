package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

func registerTestIndex(t *testing.T, indexes driven.IndexStore) *domain.RegisteredIndex {
	t.Helper()
	idx := &domain.RegisteredIndex{
		Name:       "by_views",
		Collection: "articles",
		QueryHash:  "h1",
		Definition: domain.QueryIndex{
			Collection: "articles",
			Inclusions: []domain.Filter{{Path: "rank", Value: int64(2)}},
			Params:     []domain.IndexParam{{Path: "views", Key: "views"}},
		},
	}
	require.NoError(t, indexes.SaveRegisteredIndex(context.Background(), idx))
	return idx
}

func putTestRow(t *testing.T, indexes driven.IndexStore, idx *domain.RegisteredIndex, docID string, value any) {
	t.Helper()
	ctx := context.Background()
	doc, _, err := indexes.GetOrCreateIndexDocument(ctx, idx.ID, docID)
	require.NoError(t, err)
	iv, err := domain.Classify(value)
	require.NoError(t, err)
	require.NoError(t, indexes.PutIndexRow(ctx, domain.IndexRow{
		IndexDocumentID: doc.ID,
		DocID:           docID,
		Param:           "views",
		Partition:       iv.Kind,
		Value:           iv,
	}))
}

func TestIndexStore_RegisteredIndexRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	indexes := store.IndexStore()

	idx := registerTestIndex(t, indexes)
	require.NotEmpty(t, idx.ID)

	got, err := indexes.GetRegisteredIndex(ctx, "articles", "by_views")
	require.NoError(t, err)
	assert.Equal(t, idx.ID, got.ID)
	assert.Equal(t, int64(2), got.Definition.Inclusions[0].Value)
	assert.Equal(t, idx.Definition.Hash(), got.Definition.Hash())

	update := &domain.RegisteredIndex{Name: "by_views", Collection: "articles", QueryHash: "h2"}
	require.NoError(t, indexes.SaveRegisteredIndex(ctx, update))
	assert.Equal(t, idx.ID, update.ID)

	list, err := indexes.ListRegisteredIndexes(ctx, "articles")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "h2", list[0].QueryHash)
}

func TestIndexStore_RowsAndQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	indexes := store.IndexStore()
	idx := registerTestIndex(t, indexes)

	putTestRow(t, indexes, idx, "doc-1", int64(5))
	putTestRow(t, indexes, idx, "doc-2", 12.5)
	putTestRow(t, indexes, idx, "doc-3", "many")
	putTestRow(t, indexes, idx, "doc-3", int64(40))

	doc, created, err := indexes.GetOrCreateIndexDocument(ctx, idx.ID, "doc-3")
	require.NoError(t, err)
	assert.False(t, created)
	rows, err := indexes.ListIndexRows(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.KindInt, rows[0].Partition)

	ids, err := indexes.FindDocuments(ctx, idx.ID, []domain.Condition{{Param: "views", Op: domain.OpGt, Value: 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-2", "doc-3"}, ids)

	values, err := indexes.UniqueValues(ctx, idx.ID, "views")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, int64(5), values[0].Int)
	assert.Equal(t, 12.5, values[1].Float)
	assert.Equal(t, int64(40), values[2].Int)
}

func TestIndexStore_Deletes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	indexes := store.IndexStore()
	idx := registerTestIndex(t, indexes)

	putTestRow(t, indexes, idx, "doc-1", int64(1))
	putTestRow(t, indexes, idx, "doc-2", int64(2))

	require.NoError(t, indexes.DeleteDocumentIndexes(ctx, "articles", "doc-1"))
	docs, err := indexes.ListIndexDocuments(ctx, idx.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].DocID)

	require.NoError(t, indexes.ClearIndexRows(ctx, idx.ID))
	docs, err = indexes.ListIndexDocuments(ctx, idx.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, indexes.DeleteRegisteredIndex(ctx, "articles", "by_views"))
	_, err = indexes.GetRegisteredIndex(ctx, "articles", "by_views")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
