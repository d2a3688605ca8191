// Package cli provides the dockit command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/core/ports/driving"
	"github.com/cuker/dockit/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services used by the commands. They are wired before a command runs,
// or injected directly by tests.
var (
	settingsService driving.SettingsService
	documentService driving.DocumentService
	indexService    driving.IndexService
	manifestService driving.ManifestService
)

// Global flags.
var (
	configDir   string
	dataDir     string
	backendFlag string
	verbose     bool
)

// Command annotations controlling service wiring.
const (
	annotationWiring = "dockit/wiring"

	// wiringNone skips service wiring entirely.
	wiringNone = "none"

	// wiringConfig wires the settings service but opens no storage.
	wiringConfig = "config"
)

// wire builds the services for a command. Tests replace it.
var wire = wireServices

var rootCmd = &cobra.Command{
	Use:   "dockit",
	Short: "Schema-defined documents with dot-path access and registered query indexes",
	Long: `dockit stores nested documents, resolves dotted paths inside them and keeps
registered query indexes up to date as documents change.

Storage is SQLite by default; badger and an in-memory store are also available.`,
	SilenceUsage:      true,
	PersistentPreRunE: runSetup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.dockit)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides storage.data_dir)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite, badger or memory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases opened storage afterwards.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

func runSetup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if wiringFor(cmd) == wiringNone {
		return nil
	}
	return wire(cmd)
}

// wiringFor returns the wiring annotation of cmd or its nearest annotated parent.
func wiringFor(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd:
			return wiringNone
		}
		if w, ok := c.Annotations[annotationWiring]; ok {
			return w
		}
	}
	return ""
}
