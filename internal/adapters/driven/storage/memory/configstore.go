package memory

import (
	"github.com/cuker/dockit/internal/adapters/driven/config"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps configuration in memory only.
type ConfigStore struct {
	*config.Values
}

// NewConfigStore returns an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{Values: config.NewValues(nil)}
}

func (s *ConfigStore) Update(values map[string]any) error {
	return s.Apply(values, nil)
}

func (s *ConfigStore) Path() string {
	return ":memory:"
}
