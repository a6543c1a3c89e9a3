package app

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName tags every log record emitted by the process.
const ServiceName = "tablewise"

// NewLogger returns the process logger writing to stdout.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	format := ""
	if cfg != nil {
		opts.Level = cfg.logLevel()
		opts.AddSource = cfg.LogSource
		format = cfg.LogFormat
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// logLevel parses LogLevel, falling back to info. validate rejects bad values
// before a logger is built.
func (c *Config) logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
