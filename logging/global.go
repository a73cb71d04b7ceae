// Package logging sets up the process-wide slog logger: text on the console,
// JSON in weekly rotating files.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/openqsrx/qumi-codes/config"
)

type LoggingService struct {
	Logger         *slog.Logger
	rotatingLogger *RotatingLogger
}

var DefaultLoggingService *LoggingService

// Options configures InitLogger.
type Options struct {
	LogDir         string
	Env            config.Environment
	Level          string // overrides the environment default console level
	Verbose        bool   // lets tests print below error level
	RetentionWeeks int
	MaxFileSize    int64
}

// parseLogLevel maps LOG_LEVEL and --level values to slog levels. Unknown
// values fall back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel returns the console level for an environment. An explicit
// level wins, except under test where the console stays at error unless
// verbose.
func GetConsoleLogLevel(env config.Environment, levelStr string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if levelStr != "" {
		return parseLogLevel(levelStr)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the file level. Files always keep debug records.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// InitLogger initializes the global logger instance
func InitLogger(opts Options) {
	if opts.RetentionWeeks <= 0 {
		opts.RetentionWeeks = 4
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 100 * 1024 * 1024
	}

	if DefaultLoggingService != nil {
		Close()
	}

	policy := RotationPolicy{
		Dir:            opts.LogDir,
		RetentionWeeks: opts.RetentionWeeks,
		MaxFileSize:    opts.MaxFileSize,
	}
	logger, rl := newLogger(policy, GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose), GetFileLogLevel())

	DefaultLoggingService = &LoggingService{
		Logger:         logger,
		rotatingLogger: rl,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file of the global logger
func Close() {
	if DefaultLoggingService == nil || DefaultLoggingService.rotatingLogger == nil {
		return
	}
	if err := DefaultLoggingService.rotatingLogger.Close(); err != nil {
		slog.Warn("Failed to close log file", "error", err)
	}
	DefaultLoggingService.rotatingLogger = nil
}

// ResetForTest installs a fresh global logger in dir and restores the previous
// one when the test ends.
func ResetForTest(t testing.TB, dir string, env config.Environment, level string, retentionWeeks int, maxFileSize int64) {
	t.Helper()

	previous := DefaultLoggingService
	previousDefault := slog.Default()
	DefaultLoggingService = nil

	InitLogger(Options{
		LogDir:         dir,
		Env:            env,
		Level:          level,
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxFileSize,
	})

	t.Cleanup(func() {
		Close()
		DefaultLoggingService = previous
		slog.SetDefault(previousDefault)
	})
}

// Package-level functions for direct access

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
