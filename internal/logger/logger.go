// Package logger provides a structured logging wrapper around Go's slog package.
// It supports both JSON and text formatted output, multiple log levels (debug, info, warn, error),
// and flexible output destinations (stdout, stderr, or file paths).
//
// Example usage:
//
//	log, err := logger.New(logger.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	log.Info("Application started", logger.Field{Key: "version", Value: "1.0.0"})
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr, or a file path
}

// Logger wraps slog.Logger
type Logger struct {
	slog *slog.Logger
}

// Field is a single structured logging field
type Field struct {
	Key   string
	Value any
}

// New creates a logger with the given configuration
func New(cfg Config) (*Logger, error) {
	level, valid := parseLevel(cfg.Level)
	if !valid {
		return nil, fmt.Errorf("invalid log level: %s (expected: debug, info, warn, error)", cfg.Level)
	}

	writer, err := resolveWriter(cfg.Output)
	if err != nil {
		return nil, err
	}

	handler, err := buildHandler(cfg.Format, writer, level)
	if err != nil {
		return nil, err
	}

	return &Logger{
		slog: slog.New(handler),
	}, nil
}

// resolveWriter maps the output setting to a writer, opening (and creating
// the directory for) a log file when the setting is a path.
func resolveWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	filePath := output
	if strings.HasPrefix(filePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(homeDir, filePath[2:])
	}
	filePath = filepath.Clean(filePath)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(filePath), err)
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}

	return file, nil
}

func buildHandler(format string, writer io.Writer, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(writer, opts), nil
	case "text":
		return slog.NewTextHandler(writer, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s (expected: json, text)", format)
	}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return &Logger{
		slog: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// parseLevel converts a level string to slog.Level
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Debug logs a message at debug level
func (l *Logger) Debug(msg string, fields ...Field) {
	l.slog.Debug(msg, slogArgs(fields)...)
}

// Info logs a message at info level
func (l *Logger) Info(msg string, fields ...Field) {
	l.slog.Info(msg, slogArgs(fields)...)
}

// Warn logs a message at warn level
func (l *Logger) Warn(msg string, fields ...Field) {
	l.slog.Warn(msg, slogArgs(fields)...)
}

// Error logs a message at error level with an error
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.slog.Error(msg, slogArgs(withError(err, fields))...)
}

// DebugCtx logs a message with a context at debug level
func (l *Logger) DebugCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.DebugContext(ctx, msg, slogArgs(fields)...)
}

// InfoCtx logs a message with a context at info level
func (l *Logger) InfoCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.InfoContext(ctx, msg, slogArgs(fields)...)
}

// WarnCtx logs a message with a context at warn level
func (l *Logger) WarnCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.WarnContext(ctx, msg, slogArgs(fields)...)
}

// ErrorCtx logs a message with a context at error level with an error
func (l *Logger) ErrorCtx(ctx context.Context, msg string, err error, fields ...Field) {
	l.slog.ErrorContext(ctx, msg, slogArgs(withError(err, fields))...)
}

// With returns a new logger with the given fields attached
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{
		slog: l.slog.With(slogArgs(fields)...),
	}
}

// StdLogger returns the underlying slog.Logger
func (l *Logger) StdLogger() *slog.Logger {
	return l.slog
}

// slogArgs flattens fields into alternating slog key/value arguments
func slogArgs(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

// withError prepends the error as a field so it always renders first
func withError(err error, fields []Field) []Field {
	return append([]Field{{Key: "error", Value: err}}, fields...)
}

// Default returns the process-wide default slog logger
func Default() *slog.Logger {
	return slog.Default()
}

// SetDefault installs l as the process-wide default logger
func SetDefault(l *Logger) {
	slog.SetDefault(l.slog)
}
