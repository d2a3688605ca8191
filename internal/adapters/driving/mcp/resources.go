package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for dockit resources.
	uriScheme = "dockit://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/documents",
		Name:        "collection-documents",
		Description: "Documents stored in a collection",
		MIMEType:    "application/json",
	}, s.handleCollectionResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{collection}/{id}",
		Name:        "document",
		Description: "Raw data of a specific document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)

	if s.ports.Index == nil {
		return
	}

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/indexes",
		Name:        "collection-indexes",
		Description: "Query indexes registered against a collection",
		MIMEType:    "application/json",
	}, s.handleIndexesResource)
}

// handleCollectionResource lists the documents of a collection.
func (s *Server) handleCollectionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collection := extractCollection(req.Params.URI, "/documents")
	if collection == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Document.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
		URI     string `json:"uri"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:      docs[i].ID,
			Version: docs[i].Version,
			URI:     documentURI(collection, docs[i].ID),
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleDocumentResource returns the raw data of a document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collection, id := extractDocumentRef(req.Params.URI)
	if collection == "" || id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return jsonResult(req.Params.URI, documentOutput(doc).Data)
}

// handleIndexesResource lists the indexes of a collection.
func (s *Server) handleIndexesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collection := extractCollection(req.Params.URI, "/indexes")
	if collection == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, output, err := s.handleListIndexes(ctx, nil, ListIndexesInput{Collection: collection})
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}

	return jsonResult(req.Params.URI, output.Indexes)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func documentURI(collection, id string) string {
	return uriScheme + "documents/" + collection + "/" + id
}

// extractCollection extracts the collection from a URI like dockit://collections/{collection}{suffix}.
func extractCollection(uri, suffix string) string {
	const prefix = uriScheme + "collections/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	collection := strings.TrimSuffix(uri, suffix)
	if strings.Contains(collection, "/") {
		return ""
	}
	return collection
}

// extractDocumentRef extracts the collection and id from a URI like dockit://documents/{collection}/{id}.
func extractDocumentRef(uri string) (collection, id string) {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}

	collection, id, ok := strings.Cut(strings.TrimPrefix(uri, prefix), "/")
	if !ok || strings.Contains(id, "/") {
		return "", ""
	}
	return collection, id
}
