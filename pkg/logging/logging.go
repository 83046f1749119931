// Package logging configures the process-wide slog logger for MuteTool.
//
// Levels from most to least verbose: debug, info, warn, error. Settings
// file values can be overridden per run with MUTETOOL_LOG_LEVEL and
// MUTETOOL_LOG_FORMAT.
//
// Usage:
//
//	opts := logging.FromEnv(logging.Options{Level: s.LogLevel, Format: s.LogFormat})
//	if err := logging.Setup(opts); err != nil { ... }
//	slog.Debug("mute refreshed", "device", dev)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables consulted by FromEnv.
const (
	EnvLevel  = "MUTETOOL_LOG_LEVEL"
	EnvFormat = "MUTETOOL_LOG_FORMAT"
)

// Options controls how logging is configured.
type Options struct {
	Level  string    // "debug", "info", "warn", "error" (default: "info")
	Format string    // "text" or "json" (default: "text")
	Output io.Writer // where to write logs (default: os.Stderr)
}

// FromEnv returns opts with Level and Format replaced by the environment
// variables when those are set and non-empty.
func FromEnv(opts Options) Options {
	return fromLookup(opts, os.LookupEnv)
}

func fromLookup(opts Options, lookup func(string) (string, bool)) Options {
	if v, ok := lookup(EnvLevel); ok && strings.TrimSpace(v) != "" {
		opts.Level = v
	}
	if v, ok := lookup(EnvFormat); ok && strings.TrimSpace(v) != "" {
		opts.Format = v
	}
	return opts
}

// ParseLevel converts a string level name to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the slog handler described by opts without installing
// it.
func NewHandler(opts Options) (slog.Handler, error) {
	if err := Validate(opts.Level); err != nil {
		return nil, err
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		// stdout belongs to -history and -list-devices output.
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		return slog.NewJSONHandler(out, handlerOpts), nil
	}
	return slog.NewTextHandler(out, handlerOpts), nil
}

// Setup installs the handler described by opts as the slog default.
// Call it early in main() before any logging occurs.
func Setup(opts Options) error {
	h, err := NewHandler(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// LevelNames returns all valid level names, useful for -help text.
func LevelNames() string {
	return "debug, info, warn, error"
}

// Validate returns an error if the level string is not recognized.
func Validate(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error", "":
		return nil
	default:
		return fmt.Errorf("unknown log level %q (valid: %s)", level, LevelNames())
	}
}

// ValidateFormat returns an error unless format is "text", "json" or empty.
func ValidateFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "json", "":
		return nil
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", format)
	}
}
