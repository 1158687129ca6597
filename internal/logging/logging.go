package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level written to the log file (debug, info, warn, error).
	Level string

	// FilePath is the log file. Empty disables file logging.
	FilePath string

	// MaxSizeMB is the size before rotation (default: 10).
	MaxSizeMB int

	// MaxFiles is the number of rotated files to keep (default: 3).
	MaxFiles int

	// Stderr receives human-readable logs. Nil disables it.
	Stderr io.Writer

	// StderrLevel is the minimum level written to Stderr. Empty uses Level.
	StderrLevel string
}

// DefaultConfig returns file logging at info with warnings mirrored to stderr.
func DefaultConfig(stderr io.Writer) Config {
	return Config{
		Level:       "info",
		FilePath:    DefaultLogPath(),
		MaxSizeMB:   10,
		MaxFiles:    3,
		Stderr:      stderr,
		StderrLevel: "warn",
	}
}

// Setup builds a logger from cfg and returns it with a cleanup function that
// flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var handlers []slog.Handler
	cleanup := func() {}

	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxFiles := cfg.MaxFiles
		if maxFiles <= 0 {
			maxFiles = 3
		}

		writer, err := NewRotatingWriter(cfg.FilePath, maxSize, maxFiles)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: ParseLevel(cfg.Level),
		}))
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	if cfg.Stderr != nil {
		level := cfg.StderrLevel
		if level == "" {
			level = cfg.Level
		}
		handlers = append(handlers, slog.NewTextHandler(cfg.Stderr, &slog.HandlerOptions{
			Level: ParseLevel(level),
		}))
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), cleanup, nil
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), cleanup, nil
	}
	return slog.New(fanoutHandler(handlers)), cleanup, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanoutHandler sends each record to every handler that accepts its level.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
