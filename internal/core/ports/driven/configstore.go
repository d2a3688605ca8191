package driven

// ConfigStore holds configuration as flat dotted keys such as "storage.backend".
// Typed getters return the zero value for a missing or mistyped key.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt accepts integers and integral floats.
	GetInt(key string) int

	// GetFloat widens integers.
	GetFloat(key string) float64

	GetBool(key string) bool

	// Update applies all values as one change and persists it.
	// A nil value removes its key. On error nothing is applied.
	Update(values map[string]any) error

	// Keys returns the set keys in sorted order.
	Keys() []string

	// Path describes where the configuration lives.
	Path() string
}
