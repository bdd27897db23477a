package scry

import (
	"log/slog"
	"os"

	"github.com/mirrelia/scry/config"
)

// NewLogger returns the engine's structured logger: JSON output with the
// level driven by cfg.Debug. Debug mode also records source positions, since
// matcher and observer logs interleave from several goroutines.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	addSource := false
	if cfg != nil && cfg.Debug {
		level = slog.LevelDebug
		addSource = true
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: addSource})
	return slog.New(h).With(slog.String("engine", "scry"))
}

// ComponentLogger tags base with the engine component emitting the records
// (waiter, observer, overlay), keeping interleaved worker logs attributable.
// A nil base gets a default logger from DefaultConfig.
func ComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = NewLogger(config.DefaultConfig())
	}
	return base.With(slog.String("component", component))
}
