package services

import (
	"fmt"
	"strconv"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyStorageBackend   = "storage.backend"
	KeyStorageDataDir   = "storage.data_dir"
	KeyReindexBatchSize = "reindex.batch_size"
	KeyReindexRate      = "reindex.batches_per_second"
	KeyLogVerbose       = "log.verbose"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Storage: domain.StorageSettings{
			Backend: domain.StorageBackend(s.getString(KeyStorageBackend, defaults.Storage.Backend.String())),
			DataDir: s.configStore.GetString(KeyStorageDataDir),
		},
		Reindex: domain.ReindexSettings{
			BatchSize:        s.getInt(KeyReindexBatchSize, defaults.Reindex.BatchSize),
			BatchesPerSecond: s.getFloat(KeyReindexRate, defaults.Reindex.BatchesPerSecond),
		},
		Log: domain.LogSettings{
			Verbose: s.configStore.GetBool(KeyLogVerbose),
		},
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", s.configStore.Path(), err)
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	var dataDir any
	if settings.Storage.DataDir != "" {
		dataDir = settings.Storage.DataDir
	}
	err := s.configStore.Update(map[string]any{
		KeyStorageBackend:   settings.Storage.Backend.String(),
		KeyStorageDataDir:   dataDir,
		KeyReindexBatchSize: int64(settings.Reindex.BatchSize),
		KeyReindexRate:      settings.Reindex.BatchesPerSecond,
		KeyLogVerbose:       settings.Log.Verbose,
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Set parses and stores a single setting.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch key {
	case KeyStorageBackend:
		settings.Storage.Backend = domain.StorageBackend(value)
	case KeyStorageDataDir:
		settings.Storage.DataDir = value
	case KeyReindexBatchSize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		settings.Reindex.BatchSize = n
	case KeyReindexRate:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		settings.Reindex.BatchesPerSecond = f
	case KeyLogVerbose:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		settings.Log.Verbose = b
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return s.Save(settings)
}

// Keys lists the supported setting keys.
func (s *SettingsService) Keys() []string {
	return []string{KeyStorageBackend, KeyStorageDataDir, KeyReindexBatchSize, KeyReindexRate, KeyLogVerbose}
}

// ReindexOptionsFrom derives reindex job options from settings.
func ReindexOptionsFrom(settings *domain.Settings) ReindexOptions {
	return ReindexOptions{
		BatchSize:        settings.Reindex.BatchSize,
		BatchesPerSecond: settings.Reindex.BatchesPerSecond,
	}
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}
