// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Environment overrides, checked before the configured values.
const (
	EnvLevel  = "UNIPKG_LOG_LEVEL"
	EnvFormat = "UNIPKG_LOG_FORMAT"
)

// New returns a logger writing to w.
func New(w io.Writer, format Format, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// FromConfig builds a stderr logger from configured level and format
// names, letting UNIPKG_LOG_LEVEL and UNIPKG_LOG_FORMAT win. verbose lowers
// the level to debug.
func FromConfig(level, format string, verbose bool) *slog.Logger {
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	if env := os.Getenv(EnvFormat); env != "" {
		format = env
	}

	lvl := ParseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	return New(os.Stderr, ParseFormat(format), lvl)
}

// ParseLevel maps a level name to a slog level; unknown names mean warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ParseFormat maps a format name; anything but json means text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}
