package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/adapters/driven/config/file"
	"github.com/cuker/dockit/internal/adapters/driven/manifest/yaml"
	"github.com/cuker/dockit/internal/adapters/driven/storage/badger"
	"github.com/cuker/dockit/internal/adapters/driven/storage/memory"
	"github.com/cuker/dockit/internal/adapters/driven/storage/sqlite"
	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/core/services"
	"github.com/cuker/dockit/internal/logger"
)

// closers release storage opened by wireServices.
var closers []func() error

// storage bundles the driven stores of one backend.
type storage struct {
	docs    driven.DocumentStore
	indexes driven.IndexStore
	states  driven.ReindexStateStore
	close   func() error
}

// wireServices builds the settings service and, unless the command only needs
// configuration, opens the configured backend and the services on top of it.
func wireServices(cmd *cobra.Command) error {
	if settingsService == nil {
		configStore, err := file.NewConfigStore(configDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		settingsService = services.NewSettingsService(configStore)
	}

	if wiringFor(cmd) == wiringConfig || documentService != nil {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if backendFlag != "" {
		settings.Storage.Backend = domain.StorageBackend(backendFlag)
	}
	if dataDir != "" {
		settings.Storage.DataDir = dataDir
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	logger.SetVerbose(verbose || settings.Log.Verbose)

	st, err := openStorage(settings.Storage)
	if err != nil {
		return err
	}
	if st.close != nil {
		closers = append(closers, st.close)
	}

	schemas := services.NewSchemaRegistry()
	manager := services.NewRegisteredIndexManager(st.indexes, st.docs, st.states, schemas,
		services.ReindexOptionsFrom(settings))
	documents := services.NewDocumentService(st.docs, manager)

	documentService = documents
	indexService = services.NewIndexService(manager, st.indexes, st.docs)
	manifestService = services.NewManifestService(yaml.NewCodec(), schemas, documents, manager, st.indexes)
	return nil
}

// openStorage opens the stores of the configured backend.
func openStorage(cfg domain.StorageSettings) (*storage, error) {
	logger.Debug("Opening %s storage", cfg.Backend)

	switch cfg.Backend {
	case domain.BackendMemory:
		return &storage{
			docs:    memory.NewDocumentStore(),
			indexes: memory.NewIndexStore(),
			states:  memory.NewReindexStateStore(),
		}, nil

	case domain.BackendBadger:
		dir, err := resolveDataDir(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store, err := badger.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		logger.Debug("Badger store at %s", store.Path())
		return &storage{
			docs:    store.DocumentStore(),
			indexes: store.IndexStore(),
			states:  store.ReindexStateStore(),
			close:   store.Close,
		}, nil

	default:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("SQLite store at %s", store.Path())
		return &storage{
			docs:    store.DocumentStore(),
			indexes: store.IndexStore(),
			states:  store.ReindexStateStore(),
			close:   store.Close,
		}, nil
	}
}

// resolveDataDir defaults an empty data directory to ~/.dockit/data.
func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".dockit", "data"), nil
}

// closeServices closes storage opened by wireServices.
func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("closing storage: %v", err)
		}
	}
	closers = nil
}
