// Package logger builds the process-wide slog logger: JSON for production so
// log aggregators can parse it, text otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures New.
type Options struct {
	// Env is the application environment; "production" selects JSON output.
	Env string

	// Debug lowers the level to debug.
	Debug bool

	// Output defaults to os.Stdout.
	Output io.Writer

	// Component, when set, is attached to every record.
	Component string
}

// New creates a logger and installs it as slog's default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if opts.Debug {
		handlerOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Env, "production") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Component != "" {
		log = log.With("component", opts.Component)
	}
	slog.SetDefault(log)
	return log
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Mask shortens a secret to its first five and last three characters so it
// can be logged for diagnostics.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:5] + "..." + secret[len(secret)-3:]
}
