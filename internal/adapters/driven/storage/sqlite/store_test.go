package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuker/dockit/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "dockit-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(filepath.Join(tempDir, "nested", "data"))
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "nested", "data", "dockit.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_Migrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	tables := []string{
		"documents",
		"registered_indexes",
		"index_documents",
		"index_null",
		"index_bool",
		"index_int",
		"index_float",
		"index_string",
		"index_reference",
		"reindex_states",
	}
	for _, table := range tables {
		var tableExists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&tableExists)
		require.NoError(t, err)
		assert.Equal(t, 1, tableExists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"10_later.up.sql":   {Data: []byte("SELECT 10;")},
		"2_second.up.sql":   {Data: []byte("SELECT 2;")},
		"2_second.down.sql": {Data: []byte("SELECT -2;")},
		"1_first.up.sql":    {Data: []byte("SELECT 1;")},
	}

	list, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{list[0].version, list[1].version, list[2].version})
	assert.Equal(t, "SELECT 2;", list[1].script)
}

func TestLoadMigrations_RejectsUnnumbered(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"initial.up.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)
}

func TestMigrate_FailedMigrationRollsBack(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.migrate(fstest.MapFS{
		"002_broken.up.sql": {Data: []byte("CREATE TABLE extra (id TEXT); THIS IS NOT SQL;")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken.up.sql")

	var tables int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='extra'").Scan(&tables))
	assert.Zero(t, tables)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var fkEnabled int
	err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled, "foreign keys should be enabled")
}

func TestStore_InterfaceGetters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NotNil(t, store.DocumentStore())
	assert.NotNil(t, store.IndexStore())
	assert.NotNil(t, store.ReindexStateStore())
}

// ==================== DocumentStore Tests ====================

func TestDocumentStore_SaveAndGetDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:         "doc-1",
		Collection: "articles",
		Version:    1,
		Data: map[string]any{
			"title": "hello",
			"views": int64(12),
			"score": 4.5,
			"addresses": []any{
				map[string]any{"city": "Oslo"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, docs.SaveDocument(ctx, doc))

	saved, err := docs.GetDocument(ctx, "articles", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, "hello", saved.Data["title"])
	assert.Equal(t, int64(12), saved.Data["views"])
	assert.Equal(t, 4.5, saved.Data["score"])
	assert.True(t, now.Equal(saved.CreatedAt))

	city, err := saved.DotNotation("addresses.0.city")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", city)
}

func TestDocumentStore_SaveDocument_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "doc-1", Collection: "c", Version: 1, Data: map[string]any{"n": int64(1)},
	}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "doc-1", Collection: "c", Version: 2, Data: map[string]any{"n": int64(2)},
	}))

	saved, err := docs.GetDocument(ctx, "c", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, int64(2), saved.Data["n"])
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.DocumentStore().GetDocument(context.Background(), "c", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "doc-1", Collection: "c"}))
	require.NoError(t, docs.DeleteDocument(ctx, "c", "doc-1"))
	require.NoError(t, docs.DeleteDocument(ctx, "c", "doc-1"))

	_, err := docs.GetDocument(ctx, "c", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocumentsAfter(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docs := store.DocumentStore()

	for _, id := range []string{"c", "a", "e", "b", "d"} {
		require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: id, Collection: "letters"}))
	}
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "x", Collection: "other"}))

	all, err := docs.ListDocuments(ctx, "letters")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, documentIDs(all))

	page, err := docs.ListDocumentsAfter(ctx, "letters", "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, documentIDs(page))

	page, err = docs.ListDocumentsAfter(ctx, "letters", "e", 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDocumentStore_InvalidDocumentJSON(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.db.Exec(
		"INSERT INTO documents (collection, id, version, data) VALUES ('c', 'bad', 1, '[1, 2]')")
	require.NoError(t, err)

	_, err = store.DocumentStore().GetDocument(context.Background(), "c", "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ContextCancellation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.DocumentStore().SaveDocument(ctx, &domain.Document{ID: "doc-1", Collection: "c"})
	assert.Error(t, err)
}

func documentIDs(docs []domain.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
