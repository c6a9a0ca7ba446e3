// Package logging wires log/slog for the service: console text output, a
// rotating JSON file, package-level helpers and an HTTP request logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingFile
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance at info level.
// An empty logDir logs to the console only.
func InitLogger(logDir string) {
	InitLoggerWithLevel(logDir, "info")
}

// InitLoggerWithLevel initializes the global logger with the given level name.
func InitLoggerWithLevel(logDir, level string) {
	if DefaultLoggingService != nil && DefaultLoggingService.file != nil {
		DefaultLoggingService.file.Close()
	}
	logger, file := SetupLogger(logDir, parseLogLevel(level))
	DefaultLoggingService = &LoggingService{Logger: logger, file: file}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any.
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	return DefaultLoggingService.file.Close()
}

// Logger returns the global logger, or a console fallback if InitLogger was never called.
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return fallback(slog.LevelDebug)
	}
	return DefaultLoggingService.Logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallback(slog.LevelInfo).Info(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallback(slog.LevelError).Error(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallback(slog.LevelWarn).Warn(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallback(slog.LevelDebug).Debug(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Debug(msg, args...)
}
