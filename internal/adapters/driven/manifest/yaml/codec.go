// Package yaml reads and writes fixture manifests as YAML using gopkg.in/yaml.v3.
//
// A manifest file may hold several YAML documents separated by "---"; they are
// merged in order. JSON manifests decode too, JSON being a subset of YAML.
package yaml

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// Ensure Codec implements the interface.
var _ driven.ManifestCodec = (*Codec)(nil)

// Codec is a YAML manifest codec.
type Codec struct {
	// Indent is the encoder indentation; zero means two spaces.
	Indent int
}

// NewCodec creates a YAML manifest codec.
func NewCodec() *Codec {
	return &Codec{Indent: 2}
}

// Decode reads every YAML document from r and merges them into one manifest.
// Unknown keys outside document data are rejected.
func (c *Codec) Decode(r io.Reader) (*domain.Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	merged := &domain.Manifest{}
	for n := 0; ; n++ {
		var m domain.Manifest
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: manifest document %d: %v", domain.ErrInvalidInput, n, err)
		}
		merged.Schemas = append(merged.Schemas, m.Schemas...)
		merged.Indexes = append(merged.Indexes, m.Indexes...)
		merged.Documents = append(merged.Documents, m.Documents...)
	}

	for i := range merged.Documents {
		doc := &merged.Documents[i]
		if doc.Data == nil {
			continue
		}
		data, ok := domain.Normalize(doc.Data).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: document %s: data is not a mapping", domain.ErrInvalidInput, doc.ID)
		}
		doc.Data = data
	}
	return merged, nil
}

// Encode writes m as a single YAML document.
func (c *Codec) Encode(w io.Writer, m *domain.Manifest) error {
	enc := yaml.NewEncoder(w)
	indent := c.Indent
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}
