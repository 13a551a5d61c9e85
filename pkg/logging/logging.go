// Package logging builds the launcher's structured logger: zerolog writing
// to a rotating file (and, optionally, the console), in the shape used
// throughout the grounding corpus rather than the standard library's log
// package.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	// Dir is the directory the rotating log file lives in. Created if
	// missing.
	Dir string
	// FileName defaults to "aether-core.log".
	FileName string
	// Level defaults to zerolog.InfoLevel.
	Level zerolog.Level
	// Console, when true, also writes human-readable output to stderr.
	Console bool
}

const defaultFileName = "aether-core.log"

// New constructs the logger described by cfg. It never fails silently: a
// directory it cannot create is a programmer error in the embedding
// application, surfaced immediately.
func New(cfg Config) (*zerolog.Logger, error) {
	if cfg.FileName == "" {
		cfg.FileName = defaultFileName
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	writers := []io.Writer{&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.FileName),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
	return &logger, nil
}

// Component returns a child logger tagged with the owning component name,
// so every log line can be attributed to L/S/R/E/M/D/P/B/X/I/C/G without
// each package hand-rolling its own With().Str call site.
func Component(l *zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
