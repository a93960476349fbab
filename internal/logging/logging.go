// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Component tags log lines with the subsystem that produced them.
type Component string

const (
	CompDispatch Component = "dispatch"
	CompRegistry Component = "registry"
	CompHistory  Component = "history"
	CompConfig   Component = "config"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to output. Defaults to info.
	Level zerolog.Level
	// Output is where logs are written. Defaults to os.Stderr, or to a
	// rotating file when File is set.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
	// File, when non-empty, routes output to a size-rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Init replaces the package logger. Safe to call more than once.
func Init(cfg Config) {
	out := cfg.Output
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
	}
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(out).With().Timestamp().Logger().Level(cfg.Level)
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForComponent returns a logger tagged with the given component.
func ForComponent(c Component) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.With().Str("component", string(c)).Logger()
}
