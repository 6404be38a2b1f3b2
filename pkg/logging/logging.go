// Package logging configures structured logging with tint.
//
// Usage:
//
//	closer, err := logging.Setup(logging.Options{Level: "debug"})
//	defer closer.Close()
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info), used when
//	Options.Level is empty
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	// Level is debug, info, warn or error. Empty falls back to LOG_LEVEL.
	Level string

	// File switches output from stderr to a rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the default slog logger. The returned Closer releases the
// log file, if any.
func Setup(opts Options) (io.Closer, error) {
	level := ParseLevel(opts.Level)
	if opts.Level == "" {
		level = levelFromEnv()
	}

	if opts.File == "" {
		slog.SetDefault(New(os.Stderr, level, true))
		return nopCloser{}, nil
	}

	w, err := newRotatingWriter(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(New(w, level, false))
	return w, nil
}

// New returns a logger writing tint output to w with sensitive attributes
// redacted.
func New(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(NewRedactingHandler(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  level == slog.LevelDebug,
			NoColor:    !color,
		}),
	))
}

func newRotatingWriter(opts Options) (*lumberjack.Logger, error) {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}, nil
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func levelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}
