// ABOUTME: Structured logger construction for the CLI and server
// ABOUTME: Console output on stderr plus an optional rotating JSON log file

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harper/tagtrack/internal/config"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 30
)

// Logger owns the writers behind a zerolog.Logger so they can be closed on exit.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// New builds a logger from the log section of cfg. Console output goes to console
// (normally os.Stderr); when File is set, JSON lines are also written to a rotating file.
func New(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}

	var file *lumberjack.Logger
	if cfg.File != "" {
		path := config.ExpandPath(cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil { //nolint:gosec // 0750 is appropriate for log directory
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: defaultMaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, file)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: zl, file: file}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
