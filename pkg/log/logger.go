package log

import (
	"log/slog"
	"os"
)

// New constructs a slog.Logger preconfigured at info level
func New(service, env, version string) *slog.Logger {
	return NewWithLevel(service, env, version, slog.LevelInfo)
}

// NewWithLevel constructs a slog.Logger at the provided level. Development
// environments get human-readable text output; everything else emits JSON
func NewWithLevel(service, env, version string, lvl slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: lvl,
	}

	var handler slog.Handler
	switch env {
	case "", "dev", "development":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
		slog.String("version", version))
}
