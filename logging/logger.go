// Package logging provides structured logging configured from the
// environment.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewWithWriter creates a new logger with the provided writer.
func NewWithWriter(w io.Writer, prefix string) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	switch os.Getenv("PCODEBIND_LOG_LEVEL") {
	case "debug":
		lg.SetLevel(log.DebugLevel)
	case "warn":
		lg.SetLevel(log.WarnLevel)
	case "error":
		lg.SetLevel(log.ErrorLevel)
	default:
		lg.SetLevel(log.InfoLevel)
	}

	if prefix == "" {
		prefix = "pcodebind"
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// New creates a logger based on environment variables.
// PCODEBIND_LOG_LEVEL: debug, info, warn, error (default: info).
// PCODEBIND_LOG_TO_FILE: when set to "1", logs to a timestamped file
// instead of stderr.
func New(prefix string) *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv("PCODEBIND_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("pcodebind-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// Fall back to stderr if the file cannot be created.
	}

	return NewWithWriter(output, prefix)
}

// IsDebug returns true if debug logging is enabled.
func IsDebug() bool {
	return os.Getenv("PCODEBIND_LOG_LEVEL") == "debug"
}
