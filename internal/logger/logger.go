// Package logger provides verbose logging for the dockit CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow index evaluation and reindexing.
//
// Messages are rendered by a zerolog console writer. Structured fields can be
// attached through Logger().
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	base              = newLogger(os.Stderr)
)

var levelTags = map[string]string{
	zerolog.LevelDebugValue: "[DEBUG]",
	zerolog.LevelInfoValue:  "[INFO]",
	zerolog.LevelWarnValue:  "[WARN]",
	zerolog.LevelErrorValue: "[ERROR]",
}

func newLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(w),
		NoColor:    !isTerminal(w),
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			level, _ := i.(string)
			if tag, ok := levelTags[level]; ok {
				return tag
			}
			return "[" + strings.ToUpper(level) + "]"
		},
		FormatMessage: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}
	return zerolog.New(cw)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger(w)
}

// Logger returns a zerolog logger gated by verbose mode.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return base.Level(zerolog.Disabled)
	}
	return base.Level(zerolog.DebugLevel)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}
