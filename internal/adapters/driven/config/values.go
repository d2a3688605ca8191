// Package config holds the flat key model shared by the configuration stores.
//
// Stores keep values under dotted keys ("reindex.batch_size"). Files on disk
// hold nested tables; Flatten and Nest convert between the two shapes.
package config

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// Values is a concurrency-safe set of dotted keys with typed getters.
type Values struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewValues returns Values holding a copy of data.
func NewValues(data map[string]any) *Values {
	v := &Values{}
	v.Replace(data)
	return v
}

// Replace swaps the whole key set.
func (v *Values) Replace(data map[string]any) {
	next := make(map[string]any, len(data))
	for k, val := range data {
		next[k] = val
	}
	v.mu.Lock()
	v.data = next
	v.mu.Unlock()
}

// Get returns the raw value for key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

func (v *Values) GetString(key string) string {
	s, _ := v.lookup(key).(string)
	return s
}

func (v *Values) GetInt(key string) int {
	switch n := v.lookup(key).(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

func (v *Values) GetFloat(key string) float64 {
	switch n := v.lookup(key).(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func (v *Values) GetBool(key string) bool {
	b, _ := v.lookup(key).(bool)
	return b
}

func (v *Values) lookup(key string) any {
	val, _ := v.Get(key)
	return val
}

// Keys returns the set keys in sorted order.
func (v *Values) Keys() []string {
	v.mu.RLock()
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	v.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Apply merges changes into a copy of the current values and hands it to
// commit. The merge is kept only when commit succeeds. A nil change removes
// its key; a nil commit always succeeds.
func (v *Values) Apply(changes map[string]any, commit func(map[string]any) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := make(map[string]any, len(v.data)+len(changes))
	for k, val := range v.data {
		next[k] = val
	}
	for k, val := range changes {
		if val == nil {
			delete(next, k)
			continue
		}
		next[k] = val
	}

	if commit != nil {
		if err := commit(next); err != nil {
			return err
		}
	}
	v.data = next
	return nil
}

// Flatten turns nested tables into dotted keys: {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, m, "")
	return out
}

func flattenInto(out, m map[string]any, prefix string) {
	for k, val := range m {
		if prefix != "" {
			k = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(out, nested, k)
			continue
		}
		out[k] = val
	}
}

// Nest is the inverse of Flatten.
func Nest(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, val := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = val
	}
	return out
}
