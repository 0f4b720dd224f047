package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sadesguy/eblu/internal/infrastructure/config"
)

// Logger wraps slog.Logger with eblu's default attributes attached.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml. Every
// record carries service and version attributes so entries from
// multiple deployments can be told apart in aggregated output.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return &Logger{Logger: slog.New(newHandler(cfg, w, version))}
}

// newHandler constructs the slog handler for cfg, writing to w.
// Split from New so tests can capture output in a buffer.
func newHandler(cfg config.LoggingConfig, w io.Writer, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return h.WithAttrs([]slog.Attr{
		slog.String("service", "eblu"),
		slog.String("version", version),
	})
}

// parseLevel maps a config level string to a slog.Level.
// Unrecognised values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying the given key-value pairs on
// every record, e.g. logger.With("component", "mqtt").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON logger at info level for use during early
// startup, before the configuration file has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
