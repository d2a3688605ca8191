package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuker/dockit/internal/core/domain"
)

// Document Command Tests

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range documentCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{"put", "get", "list", "delete", "dot", "set", "stage", "commit"} {
		assert.Contains(t, commandNames, name)
	}
}

func TestDocumentGetCmd_RequiresTwoArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "get", "articles")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestDocumentCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentService = nil

	_, err := execute(t, "document", "list", "articles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}

func putArticle(t *testing.T, id, data string) {
	t.Helper()
	_, err := execute(t, "document", "put", "articles", data, "--id", id)
	require.NoError(t, err)
}

func TestDocumentPutAndGet(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	output, err := execute(t, "document", "put", "articles", `{"title": "Hello", "views": 3}`, "--id", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, "Saved articles/a1 (version 1)")

	output, err = execute(t, "document", "get", "articles", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, "Document: articles/a1")
	assert.Contains(t, output, "Version:  1")
	assert.Contains(t, output, `"title": "Hello"`)
	assert.Contains(t, output, `"views": 3`)
}

func TestDocumentPut_GeneratesID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	output, err := execute(t, "document", "put", "articles", `{"title": "Hello"}`)
	require.NoError(t, err)
	assert.Contains(t, output, "Saved articles/")

	docs, err := documentService.List(context.Background(), "articles")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].ID)
}

func TestDocumentPut_FromFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"author": {"name": "Ada"}}`), 0600))

	_, err := execute(t, "document", "put", "articles", "--id", "a1", "--file", path)
	require.NoError(t, err)

	value, err := documentService.DotNotation(context.Background(), "articles", "a1", "author.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", value)
}

func TestDocumentPut_Errors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing data", []string{"document", "put", "articles"}, "missing document data"},
		{"invalid json", []string{"document", "put", "articles", "{nope"}, "invalid document data"},
		{"not an object", []string{"document", "put", "articles", "[1, 2]"}, "invalid document data"},
		{"argument and file", []string{"document", "put", "articles", "{}", "--file", "x.json"}, "not both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestDocumentList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	output, err := execute(t, "document", "list", "articles")
	require.NoError(t, err)
	assert.Contains(t, output, "No documents in collection: articles")

	putArticle(t, "a1", `{"title": "One"}`)
	putArticle(t, "a2", `{"title": "Two"}`)

	output, err = execute(t, "document", "list", "articles")
	require.NoError(t, err)
	assert.Contains(t, output, "a1 (version 1)")
	assert.Contains(t, output, "a2 (version 1)")
	assert.Contains(t, output, "Total: 2 documents")
}

func TestDocumentDot(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	putArticle(t, "a1", `{"addresses": [{"city": "Oslo"}, {"city": "Rome"}]}`)

	output, err := execute(t, "document", "dot", "articles", "a1", "addresses.1.city")
	require.NoError(t, err)
	assert.Equal(t, "\"Rome\"\n", output)

	output, err = execute(t, "document", "dot", "articles", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, `"addresses"`)

	_, err = execute(t, "document", "dot", "articles", "a1", "addresses.5.city")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDotPathNotFound)
}

func TestDocumentSet(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	putArticle(t, "a1", `{"status": "draft", "tags": ["go"]}`)

	output, err := execute(t, "document", "set", "articles", "a1", "status", "published")
	require.NoError(t, err)
	assert.Contains(t, output, "Set status on articles/a1 (version 2)")

	_, err = execute(t, "document", "set", "articles", "a1", "tags.1", `"cli"`)
	require.NoError(t, err)
	_, err = execute(t, "document", "set", "articles", "a1", "views", "42")
	require.NoError(t, err)

	ctx := context.Background()
	doc, err := documentService.Get(ctx, "articles", "a1")
	require.NoError(t, err)
	assert.Equal(t, "published", doc.Data["status"])
	assert.Equal(t, []any{"go", "cli"}, doc.Data["tags"])
	assert.Equal(t, int64(42), doc.Data["views"])

	_, err = execute(t, "document", "set", "articles", "a1", "missing.child", "1")
	assert.ErrorIs(t, err, domain.ErrDotPathNotFound)
}

func TestDocumentStageAndCommit(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	putArticle(t, "a1", `{"title": "Draft"}`)

	output, err := execute(t, "document", "stage", "articles", "a1")
	require.NoError(t, err)
	fields := strings.Fields(output)
	require.NotEmpty(t, fields)
	tempID := fields[len(fields)-1]

	_, err = execute(t, "document", "set", domain.TemporaryCollection, tempID, "title", "Final")
	require.NoError(t, err)

	output, err = execute(t, "document", "commit", tempID, "articles", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, "Committed "+tempID+" to articles/a1")

	ctx := context.Background()
	doc, err := documentService.Get(ctx, "articles", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Final", doc.Data["title"])

	_, err = documentService.Get(ctx, domain.TemporaryCollection, tempID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDelete(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	putArticle(t, "a1", `{"title": "Gone"}`)

	output, err := execute(t, "document", "delete", "articles", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, "Document articles/a1 deleted.")

	_, err = execute(t, "document", "get", "articles", "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"42", int64(42)},
		{"4.5", 4.5},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{"plain text", "plain text"},
		{`{"a": 1}`, map[string]any{"a": int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseValue(tt.input))
		})
	}
}
