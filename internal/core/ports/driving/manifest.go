package driving

import (
	"context"
	"io"

	"github.com/cuker/dockit/internal/core/domain"
)

// ManifestService imports and exports fixture manifests.
type ManifestService interface {
	// Load applies a manifest: schemas, then documents, then indexes.
	Load(ctx context.Context, r io.Reader) (*domain.ManifestResult, error)

	// Dump writes the documents and index definitions of the given collections.
	Dump(ctx context.Context, w io.Writer, collections []string) error
}
