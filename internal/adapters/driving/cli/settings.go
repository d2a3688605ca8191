package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in config.toml.

Storage flags given on the command line override these settings for one run.`,
	Annotations: map[string]string{annotationWiring: wiringConfig},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a single setting by its dotted key.

Keys:
  storage.backend              sqlite, badger or memory
  storage.data_dir             data directory (default ~/.dockit/data)
  reindex.batch_size           documents evaluated per checkpoint
  reindex.batches_per_second   reindex throttle, 0 for unthrottled
  log.verbose                  true or false`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend:  %s\n", settings.Storage.Backend)
	cmd.Printf("  Data dir: %s\n", displayDataDir(settings.Storage))
	cmd.Println()

	cmd.Println("[Reindex]")
	cmd.Printf("  Batch size: %d\n", settings.Reindex.BatchSize)
	if settings.Reindex.BatchesPerSecond > 0 {
		cmd.Printf("  Rate:       %g batches/s\n", settings.Reindex.BatchesPerSecond)
	} else {
		cmd.Printf("  Rate:       unthrottled\n")
	}
	cmd.Println()

	cmd.Println("[Log]")
	cmd.Printf("  Verbose: %t\n", settings.Log.Verbose)
	return nil
}

func displayDataDir(s domain.StorageSettings) string {
	switch {
	case s.Backend == domain.BackendMemory:
		return "(in memory)"
	case s.DataDir == "":
		return "(default ~/.dockit/data)"
	}
	return s.DataDir
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}
