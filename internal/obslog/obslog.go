// Package obslog wires up raggrep's structured logging: log/slog with a
// JSON handler over a size-rotated file, optionally mirrored to stderr.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conradkoh/raggrep/internal/capability"
)

// SlogAdapter satisfies capability.Logger by delegating to a *slog.Logger,
// for components that must not import log/slog directly to keep the
// dependency graph acyclic.
type SlogAdapter struct {
	L *slog.Logger
}

func (a SlogAdapter) Debug(msg string, args ...any) { a.L.Debug(msg, args...) }
func (a SlogAdapter) Info(msg string, args ...any)  { a.L.Info(msg, args...) }
func (a SlogAdapter) Warn(msg string, args ...any)  { a.L.Warn(msg, args...) }
func (a SlogAdapter) Error(msg string, args ...any) { a.L.Error(msg, args...) }

var _ capability.Logger = SlogAdapter{}

// Config controls where and how verbosely raggrep logs.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int
	MaxFiles      int
	WriteToStderr bool
}

// DefaultConfig logs at info level to the default path, mirrored to stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig at debug verbosity.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// DefaultLogDir is ~/.raggrep/logs, falling back to the OS temp dir if
// the home directory can't be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".raggrep", "logs")
	}
	return filepath.Join(home, ".raggrep", "logs")
}

// DefaultLogPath is DefaultLogDir()/raggrep.log.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "raggrep.log")
}

// Setup builds a *slog.Logger per cfg and returns a cleanup function that
// flushes and closes the underlying file. Callers must call cleanup
// before process exit.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
		return slog.New(handler), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// SetupDefault sets up logging with DebugConfig and installs it as the
// slog default logger, returning the cleanup function.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
