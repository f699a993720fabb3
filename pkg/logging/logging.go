// Package logging configures structured logging with log/slog.
//
// Every kite package logs through a Logger tagged with its component name:
//
//	log := logging.Default().WithComponent("engine")
//	log.Info("frame aborted", "phase", "render")
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the output format for logs.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum level written.
	Level Level
	// Format is the output format.
	Format Format
	// Output receives the records. Nil means os.Stderr.
	Output io.Writer
	// AddSource adds source file and line to each record.
	AddSource bool
	// Component tags every record with a "component" attribute.
	Component string
}

// DefaultConfig returns text output at info level on stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Component: "kite",
	}
}

// FromStrings builds a Config from the level and format names used in
// configuration files. Empty strings select the defaults.
func FromStrings(level, format string) (*Config, error) {
	cfg := DefaultConfig()
	if level != "" {
		l, err := ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = l
	}
	if format != "" {
		f, err := ParseFormat(format)
		if err != nil {
			return nil, err
		}
		cfg.Format = f
	}
	return cfg, nil
}

// Logger wraps slog.Logger with a component name.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Default returns the global logger, creating it from DefaultConfig on first
// use.
func Default() *Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(DefaultConfig())
	}
	return defaultLogger
}

// SetDefault replaces the global logger and slog's default.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New creates a Logger from cfg.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	if cfg.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}
	return &Logger{Logger: slog.New(handler), level: level}
}

// WithComponent returns a logger that tags records with name. The level is
// shared with l.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("component", name)),
		level:  l.level,
	}
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	if l.level != nil {
		l.level.Set(level)
	}
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	if l.level == nil {
		return LevelInfo
	}
	return l.level.Level()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level using the default logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %q", s)
	}
}
