package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger. Production deployments log
// JSON; the default text handler is for local work. The gateway logs query
// outcomes, so the level stays at Info even in development.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
