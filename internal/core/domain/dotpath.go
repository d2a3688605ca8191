package domain

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Wildcard is the segment meaning "each element" in schema field lookups.
const Wildcard = "*"

// DotPath is an ordered sequence of path segments: field names,
// integer indices, or the Wildcard.
type DotPath []string

// ParseDotPath splits a dotted string into segments.
// The empty string is the empty path, which addresses the root.
func ParseDotPath(s string) DotPath {
	if s == "" {
		return DotPath{}
	}
	return DotPath(strings.Split(s, "."))
}

// String joins the segments with dots.
func (p DotPath) String() string {
	return strings.Join(p, ".")
}

// HasWildcard reports whether any segment is the Wildcard.
func (p DotPath) HasWildcard() bool {
	for _, seg := range p {
		if seg == Wildcard {
			return true
		}
	}
	return false
}

// Validate rejects empty segments.
func (p DotPath) Validate() error {
	for i, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: dotpath %q has an empty segment at %d", ErrInvalidInput, p.String(), i)
		}
	}
	return nil
}

// Traverser resolves a DotPath against raw data one segment at a time,
// keeping the write context of the last step.
type Traverser struct {
	path    DotPath
	current any
	parent  any
	key     string
}

// NewTraverser creates a traverser for path.
func NewTraverser(path DotPath) *Traverser {
	return &Traverser{path: path}
}

// Path returns the dotpath being traversed.
func (t *Traverser) Path() DotPath { return t.path }

// Current returns the value resolved by the last successful Resolve.
func (t *Traverser) Current() any { return t.current }

// Parent returns the container holding Current, or nil at the root.
func (t *Traverser) Parent() any { return t.parent }

// Key returns the final segment used to reach Current from Parent.
func (t *Traverser) Key() string { return t.key }

// Resolve walks the path over mappings and sequences.
// Raw data traversal requires concrete indices: a Wildcard segment is invalid input.
func (t *Traverser) Resolve(data any) error {
	t.current, t.parent, t.key = data, nil, ""
	for i, seg := range t.path {
		if seg == Wildcard {
			return fmt.Errorf("%w: dotpath %q: wildcard at segment %d needs a concrete index",
				ErrInvalidInput, t.path.String(), i)
		}
		next, reason := step(t.current, seg)
		if reason != "" {
			return notFoundAt(t.path, i, reason)
		}
		t.parent, t.key, t.current = t.current, seg, next
	}
	return nil
}

// Resolve returns the value at path within data.
func Resolve(data any, path DotPath) (any, error) {
	t := NewTraverser(path)
	if err := t.Resolve(data); err != nil {
		return nil, err
	}
	return t.Current(), nil
}

// step descends one segment. A non-empty reason means the segment does not exist.
func step(container any, seg string) (any, string) {
	switch c := container.(type) {
	case map[string]any:
		v, ok := c[seg]
		if !ok {
			return nil, "missing key"
		}
		return v, ""
	case []any:
		idx, ok := parseIndex(seg)
		if !ok {
			return nil, "not a sequence index"
		}
		if idx >= len(c) {
			return nil, "index out of range"
		}
		return c[idx], ""
	case nil:
		return nil, "cannot descend into null"
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, "mapping keys are not strings"
		}
		v := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, "missing key"
		}
		return v.Interface(), ""
	case reflect.Slice, reflect.Array:
		if _, isBytes := container.([]byte); isBytes {
			return nil, "cannot descend into binary value"
		}
		idx, ok := parseIndex(seg)
		if !ok {
			return nil, "not a sequence index"
		}
		if idx >= rv.Len() {
			return nil, "index out of range"
		}
		return rv.Index(idx).Interface(), ""
	}
	return nil, "cannot descend into scalar"
}

func parseIndex(seg string) (int, bool) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// SetValue writes value at path inside root and returns the (possibly new) root.
// The parent of the final segment must already exist and be a mapping or a sequence.
// A sequence parent accepts an index equal to its length as an append.
// The value is normalised and stored as opaque structured data.
func SetValue(root any, path DotPath, value any) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: cannot set the document root through a dotpath", ErrInvalidInput)
	}
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if path.HasWildcard() {
		return nil, fmt.Errorf("%w: dotpath %q: writes need concrete indices", ErrInvalidInput, path.String())
	}
	return setAt(root, path, 0, Normalize(value))
}

func setAt(container any, path DotPath, pos int, value any) (any, error) {
	seg := path[pos]
	last := pos == len(path)-1

	switch c := container.(type) {
	case map[string]any:
		if last {
			c[seg] = value
			return c, nil
		}
		child, ok := c[seg]
		if !ok {
			return nil, notFoundAt(path, pos, "missing key")
		}
		updated, err := setAt(child, path, pos+1, value)
		if err != nil {
			return nil, err
		}
		c[seg] = updated
		return c, nil

	case []any:
		idx, ok := parseIndex(seg)
		if !ok {
			return nil, notFoundAt(path, pos, "not a sequence index")
		}
		if last {
			switch {
			case idx < len(c):
				c[idx] = value
				return c, nil
			case idx == len(c):
				return append(c, value), nil
			default:
				return nil, notFoundAt(path, pos, "index out of range")
			}
		}
		if idx >= len(c) {
			return nil, notFoundAt(path, pos, "index out of range")
		}
		updated, err := setAt(c[idx], path, pos+1, value)
		if err != nil {
			return nil, err
		}
		c[idx] = updated
		return c, nil

	case nil:
		return nil, notFoundAt(path, pos, "cannot descend into null")
	}

	if isContainer(container) {
		return setAt(Normalize(container), path, pos, value)
	}
	return nil, notFoundAt(path, pos, "cannot descend into scalar")
}

func isContainer(v any) bool {
	if _, isBytes := v.([]byte); isBytes {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}
