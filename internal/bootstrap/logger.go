package bootstrap

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Domenick1991/tripbooking/config"
)

// NewLogger builds the JSON logger shared by the app and the worker.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}))
}

func parseLevel(level string) slog.Level {
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
