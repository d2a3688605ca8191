package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuker/dockit/internal/adapters/driven/manifest/yaml"
	"github.com/cuker/dockit/internal/adapters/driven/storage/memory"
	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/services"
)

// setupTestServices injects memory-backed services and disables wiring.
// The returned cleanup restores the previous services and resets flags.
func setupTestServices() func() {
	origWire := wire
	origSettings, origDocuments, origIndexes, origManifests :=
		settingsService, documentService, indexService, manifestService

	wire = func(*cobra.Command) error { return nil }

	docs := memory.NewDocumentStore()
	indexes := memory.NewIndexStore()
	schemas := services.NewSchemaRegistry()
	manager := services.NewRegisteredIndexManager(indexes, docs, memory.NewReindexStateStore(), schemas,
		services.ReindexOptions{BatchSize: 2})
	documents := services.NewDocumentService(docs, manager)

	settingsService = services.NewSettingsService(memory.NewConfigStore())
	documentService = documents
	indexService = services.NewIndexService(manager, indexes, docs)
	manifestService = services.NewManifestService(yaml.NewCodec(), schemas, documents, manager, indexes)

	return func() {
		wire = origWire
		settingsService, documentService, indexService, manifestService =
			origSettings, origDocuments, origIndexes, origManifests
		resetFlags()
	}
}

// resetFlags clears flag variables that persist between Execute calls.
func resetFlags() {
	configDir, dataDir, backendFlag, verbose = "", "", "", false
	documentPutID, documentPutFile = "", ""
	indexName, indexDefer = "", false
	indexIncludes, indexExcludes, indexParams = nil, nil, nil
	queryWhere, queryJSON = nil, false
	manifestOutput = ""
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{"document", "index", "manifest", "settings", "mcp", "version"} {
		assert.Contains(t, commandNames, name)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config-dir", "data-dir", "backend", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestWiringFor(t *testing.T) {
	assert.Equal(t, wiringNone, wiringFor(versionCmd))
	assert.Equal(t, wiringConfig, wiringFor(settingsCmd))
	assert.Equal(t, wiringConfig, wiringFor(settingsSetCmd))
	assert.Equal(t, "", wiringFor(documentGetCmd))
	assert.Equal(t, "", wiringFor(indexQueryCmd))
}

// withoutServices clears the wired services for a wiring test.
func withoutServices(t *testing.T) {
	t.Helper()
	origSettings, origDocuments, origIndexes, origManifests :=
		settingsService, documentService, indexService, manifestService
	settingsService, documentService, indexService, manifestService = nil, nil, nil, nil
	t.Cleanup(func() {
		closeServices()
		settingsService, documentService, indexService, manifestService =
			origSettings, origDocuments, origIndexes, origManifests
		resetFlags()
	})
}

func TestWireServices_ConfigOnly(t *testing.T) {
	withoutServices(t)
	configDir = t.TempDir()

	require.NoError(t, wireServices(settingsSetCmd))
	assert.NotNil(t, settingsService)
	assert.Nil(t, documentService)
	assert.Nil(t, indexService)
}

func TestWireServices_Backends(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		closers int
	}{
		{"memory", "memory", 0},
		{"sqlite", "sqlite", 1},
		{"badger", "badger", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, data := t.TempDir(), t.TempDir()
			withoutServices(t)
			configDir, dataDir, backendFlag = cfg, data, tt.backend

			require.NoError(t, wireServices(documentGetCmd))
			assert.NotNil(t, documentService)
			assert.NotNil(t, indexService)
			assert.NotNil(t, manifestService)
			assert.Len(t, closers, tt.closers)
		})
	}
}

func TestWireServices_InvalidBackend(t *testing.T) {
	withoutServices(t)
	configDir = t.TempDir()
	backendFlag = "postgres"

	err := wireServices(documentGetCmd)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, documentService)
}

func TestWireServices_UsesConfiguredBackend(t *testing.T) {
	withoutServices(t)
	configDir = t.TempDir()

	require.NoError(t, wireServices(settingsSetCmd))
	require.NoError(t, settingsService.Set("storage.backend", "memory"))

	require.NoError(t, wireServices(documentGetCmd))
	assert.NotNil(t, documentService)
	assert.Empty(t, closers)
}

func TestRootCmd_EndToEndWithMemoryBackend(t *testing.T) {
	withoutServices(t)

	dir := t.TempDir()
	output, err := execute(t, "--config-dir", dir, "--backend", "memory",
		"document", "put", "articles", `{"title": "Hello"}`, "--id", "a1")
	require.NoError(t, err)
	assert.Contains(t, output, "Saved articles/a1 (version 1)")
}
