package driven

import (
	"io"

	"github.com/cuker/dockit/internal/core/domain"
)

// ManifestCodec reads and writes fixture manifests.
type ManifestCodec interface {
	// Decode reads a manifest.
	Decode(r io.Reader) (*domain.Manifest, error)

	// Encode writes a manifest.
	Encode(w io.Writer, m *domain.Manifest) error
}
