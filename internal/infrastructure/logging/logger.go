package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
)

// Logger wraps slog.Logger with emulator-wide defaults.
//
// Every line carries the service name and version; components derive
// child loggers via Component or With. All methods are safe for
// concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration.
//
// Format selects between JSON (default) and text handlers, Level filters
// records below the configured severity, and Output picks the
// destination stream. The version string is stamped on every record so
// mixed log streams from several emulator runs stay attributable.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg).WithAttrs([]slog.Attr{
		slog.String("service", "plua2"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

func newHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelFor(cfg.Level)}
	out := writerFor(cfg.Output)
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard":
		// Used by tests that exercise noisy paths.
		return io.Discard
	default:
		return os.Stdout
	}
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// levelFor maps a configured level name to its slog level. Unrecognised
// names fall back to info rather than failing startup.
func levelFor(name string) slog.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// With returns a child logger carrying additional default attributes.
//
// Example:
//
//	webLogger := logger.With("component", "web")
//	webLogger.Info("listening") // Includes component=web
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child logger tagged with the named component, the
// conventional form used when wiring package loggers at startup.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default returns a JSON stdout logger at info level for use before the
// configuration has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
