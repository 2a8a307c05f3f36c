package app

import (
	"io"
	"log/slog"
)

// newLogger builds a logger writing to outW without touching the process
// default, so each App owns an isolated instance. Unknown levels fall back
// to info rather than failing startup.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
