package app

import (
	"io"
	"log/slog"

	"github.com/sakif/snippetbase/internal/config"
)

// NewLogger builds the process logger from the log settings. An unparseable
// level falls back to info; Validate reports it before we get here.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
