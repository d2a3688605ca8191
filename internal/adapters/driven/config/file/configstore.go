package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/cuker/dockit/internal/adapters/driven/config"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// FileName is the configuration file inside the config directory.
const FileName = "config.toml"

// ConfigStore keeps dockit configuration in a TOML file.
// Dotted keys are written as nested tables, so "storage.backend" lives
// under [storage].
type ConfigStore struct {
	*config.Values
	filePath string
}

// NewConfigStore opens the config file in configDir, creating the directory
// if needed. An empty configDir means ~/.dockit. A missing file is an empty
// configuration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".dockit")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		Values:   config.NewValues(nil),
		filePath: filepath.Join(configDir, FileName),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.Replace(config.Flatten(tables))
	return nil
}

// Update applies values and rewrites the file.
func (s *ConfigStore) Update(values map[string]any) error {
	return s.Apply(values, s.write)
}

// write replaces the file through a temp file in the same directory.
func (s *ConfigStore) write(flat map[string]any) error {
	data, err := toml.Marshal(config.Nest(flat))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), FileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
