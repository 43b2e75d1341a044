package agent

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"rmf-simulator/internal/config"
)

func BuildLogger(cfg config.Config) *slog.Logger {
	return slog.New(newLogHandler(os.Stdout, cfg, isatty.IsTerminal(os.Stdout.Fd())))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newLogHandler(w io.Writer, cfg config.Config, terminal bool) slog.Handler {
	level := parseLevel(cfg.LogLevel)
	switch {
	case cfg.LogJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case terminal:
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			NoColor:    runtime.GOOS == "windows",
			TimeFormat: time.TimeOnly,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
}
