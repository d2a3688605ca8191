// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the store interfaces
// through a single database connection:
//
//   - DocumentStore: documents grouped by collection, raw data stored as JSON
//   - IndexStore: registered indexes, index documents and partitioned index rows
//   - ReindexStateStore: reindex checkpoints
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Index rows live in one table per value kind (index_null, index_bool, index_int,
// index_float, index_string, index_reference). A (index document, param) pair
// occupies at most one row across all of them.
//
// # Data Location
//
// By default, the database is stored at ~/.dockit/data/dockit.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
