package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cuker/dockit/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the document, index and checkpoint stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.dockit/data/dockit.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".dockit", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dockit.db")

	// Foreign keys are a per-connection setting, so they go in the DSN.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// IndexStore returns an IndexStore interface backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// ReindexStateStore returns a ReindexStateStore interface backed by this store.
func (s *Store) ReindexStateStore() driven.ReindexStateStore {
	return &reindexStateStore{store: s}
}

// migration is one numbered up script from the migrations directory.
type migration struct {
	version int
	name    string
	script  string
}

// loadMigrations returns the up scripts of fsys ordered by version.
// Files are named NNN_description.up.sql.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	list := make([]migration, 0, len(names))
	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return nil, fmt.Errorf("migration %s: name has no version prefix", name)
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}
		list = append(list, migration{version: version, name: name, script: string(script)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

// migrate applies every migration newer than the recorded schema version.
// Each migration and its version row commit together.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	list, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	for _, m := range list {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(m.script); err != nil {
		return fmt.Errorf("executing migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	dataJSON, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("marshalling data: %w", err)
	}
	if doc.Data == nil {
		dataJSON = []byte("{}")
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, doc.Collection, doc.ID, doc.Version, string(dataJSON), doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by collection and ID.
func (s *documentStore) GetDocument(ctx context.Context, collection, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT collection, id, version, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?
	`, collection, id)

	return scanDocument(row)
}

// DeleteDocument removes a document.
func (s *documentStore) DeleteDocument(ctx context.Context, collection, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListDocuments returns every document of a collection ordered by ID.
func (s *documentStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	return s.ListDocumentsAfter(ctx, collection, "", -1)
}

// ListDocumentsAfter returns up to limit documents with ID greater than afterID.
// A negative limit returns every remaining document.
func (s *documentStore) ListDocumentsAfter(
	ctx context.Context,
	collection, afterID string,
	limit int,
) ([]domain.Document, error) {
	if limit == 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT collection, id, version, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, collection, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var dataJSON string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&doc.Collection, &doc.ID, &doc.Version, &dataJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	data, err := domain.DecodeJSONObject([]byte(dataJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshalling data of %s: %w", doc.ID, err)
	}
	doc.Data = data
	doc.CreatedAt = timeOrZero(createdAt)
	doc.UpdatedAt = timeOrZero(updatedAt)
	return &doc, nil
}

func timeOrZero(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
