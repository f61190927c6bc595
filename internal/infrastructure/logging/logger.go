package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/qrauto/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "qrauto"

// Logger is a slog.Logger carrying the service and version fields. It
// satisfies the Logger interfaces of automation, acquisition, runner and
// mqtt.
type Logger struct {
	*slog.Logger
}

// logFilePermissions keeps run logs private; payload descriptions may name
// customer jobs.
const logFilePermissions = 0600

// New creates a Logger for cfg.Output: "stderr" (default), "stdout", or a
// file path opened for append. A file that cannot be opened falls back to
// stderr and the first entry records why.
func New(cfg config.LoggingConfig, version string) *Logger {
	var (
		output  io.Writer = os.Stderr
		openErr error
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // operator-configured path
		if err != nil {
			output, openErr = os.Stderr, err
		} else {
			output = f
		}
	}

	logger := NewWithWriter(cfg, version, output)
	if openErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "path", cfg.Output, "error", openErr)
	}
	return logger
}

// NewWithWriter creates a Logger writing to w. cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps debug, info, warn(ing) and error; anything else is info.
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

// With returns a Logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before configuration is loaded.
// It writes text to stderr at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
}
