// Package logger wraps a process-wide zap logger. Until Init is called a
// no-op logger is installed, so packages may log unconditionally.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  = zap.NewNop()
	sugar = base.Sugar()
)

// Init builds the logger from a level name (debug, info, warn, error) and
// a format ("console" or "json"). Output goes to stderr so stdout stays free
// for command output.
func Init(level, format string) {
	InitWithWriter(level, format, os.Stderr)
}

// InitWithWriter is Init with an explicit destination. Useful for testing.
func InitWithWriter(level, format string, w io.Writer) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}

	var encoder zapcore.Encoder
	if format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)
	set(zap.New(core))
}

func set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the underlying structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugw logs a debug message with key/value pairs.
func Debugw(msg string, keysAndValues ...any) {
	s().Debugw(msg, keysAndValues...)
}

// Infow logs an info message with key/value pairs.
func Infow(msg string, keysAndValues ...any) {
	s().Infow(msg, keysAndValues...)
}

// Warnw logs a warning with key/value pairs.
func Warnw(msg string, keysAndValues ...any) {
	s().Warnw(msg, keysAndValues...)
}

// Errorw logs an error with key/value pairs.
func Errorw(msg string, keysAndValues ...any) {
	s().Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = s().Sync()
}
