package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tabsplit/internal/config"
)

// NewLogger creates and configures a new slog.Logger. Development builds get
// colored console output, every other environment logs JSON to stdout.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	var handler slog.Handler
	if cfg.Application.IsDevelopment() {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  level == slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			// Add source code location to log output
			AddSource: level == slog.LevelDebug,
		})
	}

	logger := slog.New(handler).With("service", cfg.Application.Name)
	logger.Info("logger initialized", "level", level, "env", cfg.Application.Env)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
