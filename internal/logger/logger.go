// Package logger provides process-wide logging for Dossier.
//
// The printf-style helpers (Debug, Info, Warn, Error, Section) keep CLI
// output terse: debug output appears only in verbose mode. Long-running
// commands (serve, worker) switch to JSON and attach structured fields
// through L and With. Output can additionally be rotated to a file.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field is a structured log field.
type Field = zap.Field

// Options configures the global logger.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool

	// Level overrides the level derived from Verbose ("debug", "info", "warn", "error").
	Level string

	// JSON selects the JSON encoder instead of the console encoder.
	JSON bool

	// File enables a rotated log file alongside the main output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu   sync.RWMutex
	opts Options
	sink = zapcore.Lock(zapcore.AddSync(os.Stderr))
	base = build(opts, sink)
)

// Configure replaces the global logger.
func Configure(o Options) error {
	if o.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(o.Level)); err != nil {
			return fmt.Errorf("logger: parse level %q: %w", o.Level, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	opts = o
	base = build(opts, sink)
	return nil
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	opts.Verbose = v
	base = build(opts, sink)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.Verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = zapcore.Lock(zapcore.AddSync(w))
	base = build(opts, sink)
}

// L returns the current structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns the current logger with fields attached.
func With(fields ...Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes buffered output.
func Sync() error {
	return L().Sync()
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	logf(zapcore.DebugLevel, format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	logf(zapcore.InfoLevel, format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	logf(zapcore.WarnLevel, format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	logf(zapcore.ErrorLevel, format, args...)
}

// Section marks the start of a pipeline stage in verbose output.
func Section(name string) {
	logf(zapcore.DebugLevel, "=== %s ===", name)
}

func logf(level zapcore.Level, format string, args ...any) {
	l := L()
	if ce := l.Check(level, ""); ce != nil {
		ce.Message = fmt.Sprintf(format, args...)
		ce.Write()
	}
}

// Field constructors.

func String(key, val string) Field                 { return zap.String(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Err(err error) Field                          { return zap.Error(err) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

func build(o Options, w zapcore.WriteSyncer) *zap.Logger {
	level := zapcore.WarnLevel
	if o.Verbose {
		level = zapcore.DebugLevel
	}
	if o.Level != "" {
		_ = level.UnmarshalText([]byte(o.Level))
	}
	atomic := zap.NewAtomicLevelAt(level)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder(o.JSON), w, atomic),
	}
	if o.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder(true), zapcore.AddSync(rotated), atomic))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func encoder(json bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if json {
		cfg.TimeKey = "ts"
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}
