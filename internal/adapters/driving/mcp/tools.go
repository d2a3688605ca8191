package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cuker/dockit/internal/core/domain"
)

// DocumentInput addresses a stored document.
type DocumentInput struct {
	Collection string `json:"collection" jsonschema:"the collection holding the document"`
	ID         string `json:"id" jsonschema:"the document id"`
}

// DocumentOutput is a stored document.
type DocumentOutput struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Version    int            `json:"version"`
	Data       map[string]any `json:"data"`
}

// DotNotationInput is the input schema for the dot_notation tool.
type DotNotationInput struct {
	Collection string `json:"collection" jsonschema:"the collection holding the document"`
	ID         string `json:"id" jsonschema:"the document id"`
	Path       string `json:"path" jsonschema:"dot separated path, e.g. author.addresses.0.city; empty for the whole document"`
}

// DotNotationOutput is the output schema for the dot_notation tool.
type DotNotationOutput struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Value any    `json:"value,omitempty"`
}

// SetValueInput is the input schema for the set_value tool.
type SetValueInput struct {
	Collection string `json:"collection" jsonschema:"the collection holding the document"`
	ID         string `json:"id" jsonschema:"the document id"`
	Path       string `json:"path" jsonschema:"dot separated path whose parent must already exist"`
	Value      any    `json:"value,omitempty" jsonschema:"the value to store; omitted means null"`
}

// ConditionInput is one query condition.
type ConditionInput struct {
	Param string `json:"param" jsonschema:"the index param key"`
	Op    string `json:"op,omitempty" jsonschema:"exact (default), gt, gte, lt, lte or absent"`
	Value any    `json:"value,omitempty" jsonschema:"the value to compare against"`
}

// QueryIndexInput is the input schema for the query_index tool.
type QueryIndexInput struct {
	Collection string           `json:"collection" jsonschema:"the indexed collection"`
	Index      string           `json:"index" jsonschema:"the registered index name"`
	Conditions []ConditionInput `json:"conditions,omitempty" jsonschema:"conditions that must all hold"`
	Limit      int              `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 20)"`
}

// QueryIndexOutput is the output schema for the query_index tool.
type QueryIndexOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
}

// UniqueValuesInput is the input schema for the unique_values tool.
type UniqueValuesInput struct {
	Collection string `json:"collection" jsonschema:"the indexed collection"`
	Index      string `json:"index" jsonschema:"the registered index name"`
	Param      string `json:"param" jsonschema:"the index param key"`
}

// UniqueValuesOutput is the output schema for the unique_values tool.
type UniqueValuesOutput struct {
	Param  string `json:"param"`
	Values []any  `json:"values"`
}

// ListIndexesInput is the input schema for the list_indexes tool.
type ListIndexesInput struct {
	Collection string `json:"collection" jsonschema:"the collection whose indexes are listed"`
}

// IndexOutput describes a registered index.
type IndexOutput struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	Hash       string   `json:"hash"`
	Params     []string `json:"params"`
}

// ListIndexesOutput is the output schema for the list_indexes tool.
type ListIndexesOutput struct {
	Indexes []IndexOutput `json:"indexes"`
}

const defaultQueryLimit = 20

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a stored document by collection and id",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dot_notation",
		Description: "Resolve a dotted path inside a stored document",
	}, s.handleDotNotation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_value",
		Description: "Write a value at a dotted path in a stored document and save it",
	}, s.handleSetValue)

	if s.ports.Index == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_indexes",
		Description: "List the query indexes registered against a collection",
	}, s.handleListIndexes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_index",
		Description: "Find documents through a registered index",
	}, s.handleQueryIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unique_values",
		Description: "List the distinct values of an index param, for faceting",
	}, s.handleUniqueValues)
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Document.Get(ctx, input.Collection, input.ID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(doc), nil
}

// handleDotNotation reports a missing path as Found=false rather than as a tool error.
func (s *Server) handleDotNotation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DotNotationInput,
) (*mcp.CallToolResult, DotNotationOutput, error) {
	value, err := s.ports.Document.DotNotation(ctx, input.Collection, input.ID, input.Path)
	if domain.IsDotPathNotFound(err) {
		return nil, DotNotationOutput{Path: input.Path}, nil
	}
	if err != nil {
		return nil, DotNotationOutput{}, err
	}
	return nil, DotNotationOutput{Path: input.Path, Found: true, Value: value}, nil
}

func (s *Server) handleSetValue(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetValueInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Document.SetValue(ctx, input.Collection, input.ID, input.Path, input.Value)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(doc), nil
}

func (s *Server) handleListIndexes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListIndexesInput,
) (*mcp.CallToolResult, ListIndexesOutput, error) {
	indexes, err := s.ports.Index.List(ctx, input.Collection)
	if err != nil {
		return nil, ListIndexesOutput{}, err
	}

	output := ListIndexesOutput{Indexes: make([]IndexOutput, len(indexes))}
	for i := range indexes {
		params := make([]string, len(indexes[i].Definition.Params))
		for j, p := range indexes[i].Definition.Params {
			params[j] = p.Key
		}
		output.Indexes[i] = IndexOutput{
			Name:       indexes[i].Name,
			Collection: indexes[i].Collection,
			Hash:       indexes[i].QueryHash,
			Params:     params,
		}
	}
	return nil, output, nil
}

func (s *Server) handleQueryIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryIndexInput,
) (*mcp.CallToolResult, QueryIndexOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	conds := make([]domain.Condition, len(input.Conditions))
	for i, c := range input.Conditions {
		op := domain.Operator(c.Op)
		if op == "" {
			op = domain.OpExact
		}
		conds[i] = domain.Condition{Param: c.Param, Op: op, Value: c.Value}
	}

	docs, err := s.ports.Index.Query(ctx, input.Collection, input.Index, conds)
	if err != nil {
		return nil, QueryIndexOutput{}, fmt.Errorf("query %s: %w", input.Index, err)
	}

	n := min(limit, len(docs))
	output := QueryIndexOutput{
		Documents: make([]DocumentOutput, n),
		Count:     n,
		Total:     len(docs),
	}
	for i := 0; i < n; i++ {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleUniqueValues(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UniqueValuesInput,
) (*mcp.CallToolResult, UniqueValuesOutput, error) {
	values, err := s.ports.Index.UniqueValues(ctx, input.Collection, input.Index, input.Param)
	if err != nil {
		return nil, UniqueValuesOutput{}, err
	}

	output := UniqueValuesOutput{Param: input.Param, Values: make([]any, len(values))}
	for i, v := range values {
		output.Values[i] = v.Interface()
	}
	return nil, output, nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	return DocumentOutput{
		ID:         doc.ID,
		Collection: doc.Collection,
		Version:    doc.Version,
		Data:       data,
	}
}
