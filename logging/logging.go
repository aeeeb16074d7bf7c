// Package logging configures the process-wide slog logger. Logs go to a file
// so they never interleave with the interactive console.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel overrides the configured level when the flag is not given.
const EnvLogLevel = "SYSMANAGE_LOG_LEVEL"

// Logger is a configured slog logger and the file behind it.
type Logger struct {
	*slog.Logger
	file io.Closer
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Open creates a text logger appending to path at level. An empty path or the
// level "off" yields a logger that discards everything.
func Open(path, level string) (*Logger, error) {
	lvl, enabled, ok := ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if path == "" || !enabled {
		return &Logger{Logger: slog.New(slog.DiscardHandler)}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})
	return &Logger{Logger: slog.New(handler), file: f}, nil
}

// LevelFromEnv returns the level named by EnvLogLevel, or fallback when the
// variable is unset or not a level.
func LevelFromEnv(fallback string) string {
	raw := os.Getenv(EnvLogLevel)
	if _, _, ok := ParseLevel(raw); ok && strings.TrimSpace(raw) != "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return fallback
}

// ParseLevel maps a level name to slog. enabled is false for "off".
func ParseLevel(raw string) (lvl slog.Level, enabled, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, true, true
	case "debug", "trace":
		return slog.LevelDebug, true, true
	case "warn", "warning":
		return slog.LevelWarn, true, true
	case "error":
		return slog.LevelError, true, true
	case "off", "disabled", "none":
		return slog.LevelInfo, false, true
	default:
		return slog.LevelInfo, false, false
	}
}
