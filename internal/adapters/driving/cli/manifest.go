package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/cuker/dockit/internal/logger"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Load and dump fixture manifests",
	Long: `Manifests are YAML (or JSON) files holding schemas, index definitions and
documents. Loading registers schemas first, then saves documents, then
registers indexes.`,
}

var manifestLoadCmd = &cobra.Command{
	Use:   "load [file...]",
	Short: "Load one or more manifests",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runManifestLoad,
}

var manifestDumpCmd = &cobra.Command{
	Use:   "dump [collection...]",
	Short: "Write the documents and indexes of collections as a manifest",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runManifestDump,
}

var manifestWatchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Load a manifest and reload it whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestWatch,
}

var manifestOutput string

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

func init() {
	manifestDumpCmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "write to a file instead of stdout")

	manifestCmd.AddCommand(manifestLoadCmd)
	manifestCmd.AddCommand(manifestDumpCmd)
	manifestCmd.AddCommand(manifestWatchCmd)
	rootCmd.AddCommand(manifestCmd)
}

func runManifestLoad(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	for _, path := range args {
		if err := loadManifestFile(cmd, path); err != nil {
			return err
		}
	}
	return nil
}

func loadManifestFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	result, err := manifestService.Load(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	cmd.Printf("Loaded %s: %d schemas, %d documents, %d indexes\n",
		path, result.Schemas, result.Documents, result.Indexes)
	return nil
}

func runManifestDump(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	w := cmd.OutOrStdout()
	if manifestOutput != "" {
		f, err := os.Create(manifestOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", manifestOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := manifestService.Dump(cmd.Context(), w, args); err != nil {
		return fmt.Errorf("failed to dump manifest: %w", err)
	}

	if manifestOutput != "" {
		cmd.Printf("Wrote %s\n", manifestOutput)
	}
	return nil
}

func runManifestWatch(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	path := args[0]
	if err := loadManifestFile(cmd, path); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", path)
	return watchFile(ctx, path, func() {
		if err := loadManifestFile(cmd, path); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	})
}

// watchFile calls reload after path is written or created.
// The parent directory is watched so editors that replace the file are followed.
// It blocks until ctx is done.
func watchFile(ctx context.Context, path string, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !isReloadEvent(event) {
				continue
			}
			logger.Debug("Manifest %s: %s", event.Name, event.Op)
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watching %s: %v", path, err)

		case <-timer.C:
			reload()
		}
	}
}

func isReloadEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
