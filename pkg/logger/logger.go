// Package logger provides the structured logger used throughout this
// module, wrapping go.uber.org/zap behind the same Debug/Info/Error
// call-site shape the rest of the codebase expects.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

func init() {
	log = build(zapcore.InfoLevel).Sugar()
}

// Init initializes the logger with the level named by LOG_LEVEL
// (debug, info, or error; defaults to info).
func Init() {
	mu.Lock()
	defer mu.Unlock()
	log = build(levelFromEnv()).Sugar()
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zapcore.DebugLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build()
	if err != nil {
		// Fall back to zap's example logger rather than leaving the
		// module with no logger at all.
		l = zap.NewExample()
	}
	return l
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a debug message, visible only when LOG_LEVEL=debug.
func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Info logs an informational message.
func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Error logs an error message. Always emitted regardless of level.
func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() error {
	return current().Sync()
}
