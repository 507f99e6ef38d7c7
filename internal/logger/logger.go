// Package logger builds the root logger of an episodic process.
//
// The root writes to stdout (console or JSON) and, when a log directory is
// configured, to a rotated episodic.log. Pipeline components such as the
// orchestrator, the gateway, feed sync and the HTTP API derive child
// loggers from it tagged with a "component" field, so one pass can be
// followed across the log by component and pass id.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the rotated log file inside Config.Path.
const FileName = "episodic.log"

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

// Logger is the process root logger.
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// Config mirrors the logging section of the episodic configuration.
type Config struct {
	Level      string
	Format     string // "console" or "json"
	Path       string // log directory; empty disables the file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates the root logger writing to stdout.
func New(cfg Config) *Logger {
	return newWithOutput(cfg, os.Stdout)
}

func newWithOutput(cfg Config, out io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	// go run builds always log at debug
	if devBuild() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{consoleWriter(cfg.Format, out)}
	rotator := newRotator(cfg)
	if rotator != nil {
		writers = append(writers, rotator)
	}

	root := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: root, rotator: rotator}
}

func consoleWriter(format string, out io.Writer) io.Writer {
	if format == "json" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// newRotator returns nil when no log directory is configured or it cannot
// be created; stdout logging still works in that case.
func newRotator(cfg Config) *lumberjack.Logger {
	if cfg.Path == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, FileName),
		MaxSize:    orDefault(cfg.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, defaultMaxAgeDays),
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func devBuild() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	return strings.Contains(exe, "go-build")
}

// parseLevel accepts zerolog level names plus "warning". Anything else
// falls back to info.
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Component returns a child logger tagged with the given component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.Logger.With().Str("component", name).Logger()
}

// Close flushes and closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}
