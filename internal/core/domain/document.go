package domain

import "time"

// TemporaryCollection holds staged copies of documents that are edited
// before being committed back to their real collection.
const TemporaryCollection = "__temporary__"

// IDField is the key stripped from raw data when copying documents.
const IDField = "_id"

// Document represents a schema-defined record of nested raw data.
type Document struct {
	// ID is the unique identifier within the collection.
	ID string `json:"id" yaml:"id"`

	// Collection is the namespace the document belongs to.
	Collection string `json:"collection" yaml:"collection"`

	// Version is incremented on every save.
	Version int `json:"version" yaml:"version,omitempty"`

	// Data is the raw nested structure: map[string]any, []any and scalar leaves.
	Data map[string]any `json:"data" yaml:"data"`

	// CreatedAt is when the document was first saved.
	CreatedAt time.Time `json:"created_at" yaml:"-"`

	// UpdatedAt is when the document was last saved.
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DotNotation resolves a dotted path against the document's data.
func (d *Document) DotNotation(path string) (any, error) {
	return Resolve(d.Data, ParseDotPath(path))
}

// SetValue writes value at a dotted path in the document's data.
func (d *Document) SetValue(path string, value any) error {
	if d.Data == nil {
		d.Data = make(map[string]any)
	}
	root, err := SetValue(d.Data, ParseDotPath(path), value)
	if err != nil {
		return err
	}
	d.Data = root.(map[string]any)
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.Data != nil {
		c.Data = deepCopy(d.Data).(map[string]any)
	}
	return &c
}

// Ref returns a reference to this document.
func (d *Document) Ref() Reference {
	return Reference{Collection: d.Collection, ID: d.ID}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}
		return s
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
