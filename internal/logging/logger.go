package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/havenstay/authsession/internal/config"
)

// New builds the process logger from cfg. Every record carries the service
// name and version.
func New(cfg config.LoggingConfig, service, version string) *slog.Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return NewWithWriter(output, cfg, service, version)
}

// NewWithWriter is New with an explicit destination; Output is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, service, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	}))
}

// parseLevel defaults to info for unknown names.
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

// Default is the logger used before configuration is loaded.
func Default(service string) *slog.Logger {
	return New(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"}, service, "dev")
}
