// Package cli provides common initialization for cmd/spendtrack:
// env file loading and logger setup.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"spendtrack/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger. Logs go to stderr so command output on
// stdout stays clean.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     parseLevel(level),
		Component: log.ComponentCLI,
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(level),
		}),
	})
	log.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
