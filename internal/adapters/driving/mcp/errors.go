// Package mcp provides an MCP (Model Context Protocol) server adapter for dockit.
// It lets AI assistants read documents, resolve dotpaths and query registered indexes.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
