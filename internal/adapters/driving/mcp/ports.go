package mcp

import (
	"github.com/cuker/dockit/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Document reads and writes documents.
	Document driving.DocumentService

	// Index queries registered indexes. Index tools are not registered without it.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
