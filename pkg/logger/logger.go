// Package logger builds the application's slog.Logger from environment
// configuration. Production runs JSON for log aggregation; development runs
// text at debug level.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config is populated from the environment via config.Load.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format Format `env:"LOG_FORMAT" envDefault:"json"`
}

type options struct {
	output io.Writer
	attrs  []slog.Attr
}

// Option adjusts logger construction.
type Option func(*options)

// WithOutput sets a custom output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr attaches static attributes to every record, typically the
// service name and version.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New builds a logger from cfg. Unknown level or format strings fall back
// to info/json rather than failing startup.
func New(cfg Config, opts ...Option) *slog.Logger {
	o := options{output: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(o.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	}

	if len(o.attrs) > 0 {
		handler = handler.WithAttrs(o.attrs)
	}

	return slog.New(handler)
}

// NewDiscard returns a logger that drops everything, for tests and optional
// dependencies.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
