package logger

import (
	"log/slog"
	"os"
)

// New creates a JSON structured logger that writes to stdout.
// Debug logging is enabled in development mode.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
