package domain

import "fmt"

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldInt       FieldType = "int"
	FieldFloat     FieldType = "float"
	FieldBool      FieldType = "bool"
	FieldReference FieldType = "reference"

	// FieldSchema is a nested object with its own declared fields.
	FieldSchema FieldType = "schema"

	// FieldList is an ordered sequence of Item fields.
	FieldList FieldType = "list"

	// FieldDict is an open mapping; anything below it is undeclared.
	FieldDict FieldType = "dict"

	// FieldAny is returned for lookups below a dict.
	FieldAny FieldType = "any"
)

// Field is a declared field of a schema.
type Field struct {
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`

	// Item is the element field of a list.
	Item *Field `json:"item,omitempty" yaml:"item,omitempty"`

	// Fields are the members of a nested schema.
	Fields []*Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IndexKind returns the partition declared by a scalar field.
func (f *Field) IndexKind() (ValueKind, bool) {
	switch f.Type {
	case FieldText:
		return KindString, true
	case FieldInt:
		return KindInt, true
	case FieldFloat:
		return KindFloat, true
	case FieldBool:
		return KindBool, true
	case FieldReference:
		return KindReference, true
	}
	return KindNull, false
}

func (f *Field) member(name string) *Field {
	for _, m := range f.Fields {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (f *Field) validate(at string) error {
	switch f.Type {
	case FieldText, FieldInt, FieldFloat, FieldBool, FieldReference, FieldDict:
		return nil
	case FieldList:
		if f.Item == nil {
			return fmt.Errorf("%w: list field %s has no item", ErrInvalidInput, at)
		}
		return f.Item.validate(at + ".*")
	case FieldSchema:
		seen := make(map[string]bool, len(f.Fields))
		for _, m := range f.Fields {
			if m == nil || m.Name == "" {
				return fmt.Errorf("%w: unnamed field in %s", ErrInvalidInput, at)
			}
			if seen[m.Name] {
				return fmt.Errorf("%w: duplicate field %s.%s", ErrInvalidInput, at, m.Name)
			}
			seen[m.Name] = true
			if err := m.validate(at + "." + m.Name); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: field %s has type %q", ErrUnsupportedType, at, f.Type)
}

// Schema declares the fields of documents in a collection.
type Schema struct {
	Collection string   `json:"collection" yaml:"collection"`
	Fields     []*Field `json:"fields" yaml:"fields"`
}

// Validate checks field names and types.
func (s *Schema) Validate() error {
	if s.Collection == "" {
		return fmt.Errorf("%w: schema has no collection", ErrInvalidInput)
	}
	return s.root().validate(s.Collection)
}

func (s *Schema) root() *Field {
	return &Field{Type: FieldSchema, Fields: s.Fields}
}

// FieldAt looks up the declared field addressed by a dotted path.
// List fields accept either an integer index or the Wildcard and step into their item.
// Everything below a dict field is FieldAny.
func (s *Schema) FieldAt(path string) (*Field, error) {
	p := ParseDotPath(path)
	cur := s.root()
	for i, seg := range p {
		switch cur.Type {
		case FieldSchema:
			next := cur.member(seg)
			if next == nil {
				return nil, notFoundAt(p, i, "no such field")
			}
			cur = next
		case FieldList:
			if _, ok := parseIndex(seg); !ok && seg != Wildcard {
				return nil, notFoundAt(p, i, "list field needs an index or wildcard")
			}
			cur = cur.Item
		case FieldDict, FieldAny:
			return &Field{Name: p[len(p)-1], Type: FieldAny}, nil
		default:
			return nil, notFoundAt(p, i, "cannot descend into scalar field")
		}
	}
	return cur, nil
}
