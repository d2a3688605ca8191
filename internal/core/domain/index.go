package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Filter pairs a dotpath with a value.
// As an inclusion the document must resolve Path to Value;
// as an exclusion a document resolving Path to Value is skipped.
type Filter struct {
	Path  string `json:"path" yaml:"path"`
	Value any    `json:"value" yaml:"value"`
}

// IndexParam materialises the value at Path as an index row named Key.
type IndexParam struct {
	Path string `json:"path" yaml:"path"`
	Key  string `json:"key" yaml:"key"`

	// Kind is the declared partition. Empty means "infer from the schema,
	// otherwise from the runtime value".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// DeclaredKind returns the declared partition, if any.
func (p IndexParam) DeclaredKind() (ValueKind, bool) {
	k, err := ParseValueKind(p.Kind)
	if err != nil || p.Kind == "" {
		return KindNull, false
	}
	return k, true
}

// QueryIndex specifies which documents of a collection are indexed and which values are materialised.
type QueryIndex struct {
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Collection string       `json:"collection" yaml:"collection"`
	Inclusions []Filter     `json:"inclusions,omitempty" yaml:"inclusions,omitempty"`
	Exclusions []Filter     `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	Params     []IndexParam `json:"params" yaml:"params"`
}

// Validate checks the specification is usable against raw data.
func (q *QueryIndex) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: query index has no collection", ErrInvalidInput)
	}
	if len(q.Params) == 0 {
		return fmt.Errorf("%w: query index %q has no params", ErrInvalidInput, q.IndexName())
	}
	filters := append(append([]Filter{}, q.Inclusions...), q.Exclusions...)
	for _, f := range filters {
		if err := validateRawPath(f.Path); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(q.Params))
	for _, p := range q.Params {
		if p.Key == "" {
			return fmt.Errorf("%w: param for path %q has no key", ErrInvalidInput, p.Path)
		}
		if seen[p.Key] {
			return fmt.Errorf("%w: duplicate param key %q", ErrInvalidInput, p.Key)
		}
		seen[p.Key] = true
		if err := validateRawPath(p.Path); err != nil {
			return err
		}
		if _, err := ParseValueKind(p.Kind); err != nil {
			return err
		}
	}
	return nil
}

func validateRawPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty dotpath", ErrInvalidInput)
	}
	p := ParseDotPath(path)
	if err := p.Validate(); err != nil {
		return err
	}
	if p.HasWildcard() {
		return fmt.Errorf("%w: dotpath %q: index paths need concrete indices", ErrInvalidInput, path)
	}
	return nil
}

// Hash is the content hash of the specification. The name is not part of it.
func (q *QueryIndex) Hash() string {
	canonical := struct {
		Collection string       `json:"collection"`
		Inclusions []Filter     `json:"inclusions"`
		Exclusions []Filter     `json:"exclusions"`
		Params     []IndexParam `json:"params"`
	}{
		Collection: q.Collection,
		Inclusions: normalizeFilters(q.Inclusions),
		Exclusions: normalizeFilters(q.Exclusions),
		Params:     q.Params,
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		// Values that cannot be marshalled still hash deterministically by their printed form.
		data = []byte(fmt.Sprintf("%#v", canonical))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func normalizeFilters(filters []Filter) []Filter {
	out := make([]Filter, len(filters))
	for i, f := range filters {
		out[i] = Filter{Path: f.Path, Value: Normalize(f.Value)}
	}
	return out
}

// IndexName is the registered name: the explicit name or the specification hash.
func (q *QueryIndex) IndexName() string {
	if q.Name != "" {
		return q.Name
	}
	return q.Hash()
}

// Param returns the param with the given key.
func (q *QueryIndex) Param(key string) (IndexParam, bool) {
	for _, p := range q.Params {
		if p.Key == key {
			return p, true
		}
	}
	return IndexParam{}, false
}

// RegisteredIndex is the persisted record of a registered QueryIndex.
// At most one exists per (Name, Collection).
type RegisteredIndex struct {
	ID         string
	Name       string
	Collection string
	QueryHash  string

	// Definition is the specification the hash was computed from.
	Definition QueryIndex

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexDocument ties a RegisteredIndex to one document.
// At most one exists per (IndexID, DocID).
type IndexDocument struct {
	ID      string
	IndexID string
	DocID   string
}

// IndexRow is one materialised (document, param, value) fact.
// At most one exists per (IndexDocumentID, Param).
type IndexRow struct {
	IndexDocumentID string
	DocID           string
	Param           string

	// Partition is the storage variant: the declared kind, or the value's kind when undeclared.
	Partition ValueKind
	Value     IndexValue

	// Absent is set when the param's dotpath did not resolve; Value is then null.
	Absent bool
}

// RegisterOutcome describes what RegisterIndex did.
type RegisterOutcome int

const (
	// RegisterCreated means the index did not exist.
	RegisterCreated RegisterOutcome = iota

	// RegisterChanged means the definition hash changed and rows were purged.
	RegisterChanged

	// RegisterUnchanged means an identical definition was already registered.
	RegisterUnchanged
)

func (o RegisterOutcome) String() string {
	switch o {
	case RegisterCreated:
		return "created"
	case RegisterChanged:
		return "changed"
	case RegisterUnchanged:
		return "unchanged"
	}
	return "unknown"
}
