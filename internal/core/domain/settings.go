package domain

import "fmt"

// StorageBackend selects the persistence adapter.
type StorageBackend string

const (
	// BackendSQLite stores documents and partitioned index tables in SQLite.
	BackendSQLite StorageBackend = "sqlite"

	// BackendBadger stores documents and index documents as badger key/values.
	BackendBadger StorageBackend = "badger"

	// BackendMemory keeps everything in process memory.
	BackendMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is known.
func (b StorageBackend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendBadger, BackendMemory:
		return true
	}
	return false
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// AllStorageBackends returns every storage backend.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{BackendSQLite, BackendBadger, BackendMemory}
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Backend StorageBackend

	// DataDir overrides the default data directory.
	DataDir string
}

// ReindexSettings tunes the reindex job.
type ReindexSettings struct {
	BatchSize int

	// BatchesPerSecond throttles reindexing; zero is unthrottled.
	BatchesPerSecond float64
}

// LogSettings configures logging.
type LogSettings struct {
	Verbose bool
}

// Settings is the application configuration.
type Settings struct {
	Storage StorageSettings
	Reindex ReindexSettings
	Log     LogSettings
}

// DefaultSettings returns the default configuration.
func DefaultSettings() Settings {
	return Settings{
		Storage: StorageSettings{Backend: BackendSQLite},
		Reindex: ReindexSettings{BatchSize: 100},
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidInput, s.Storage.Backend)
	}
	if s.Reindex.BatchSize <= 0 {
		return fmt.Errorf("%w: reindex batch size must be positive", ErrInvalidInput)
	}
	if s.Reindex.BatchesPerSecond < 0 {
		return fmt.Errorf("%w: reindex rate cannot be negative", ErrInvalidInput)
	}
	return nil
}
