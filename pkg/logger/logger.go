// Package logger is the connector's slog front end. It masks credential
// attributes and lets a run attach its identifiers to a context so that
// every component logging under that context carries them.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a *slog.Logger whose With keeps the wrapper type.
type Logger struct {
	*slog.Logger
}

// Config selects level, handler format and destination.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a Logger. Format "text" selects slog's text handler; anything
// else is JSON. A nil Output writes to stderr.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: redact,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

// NewNop returns a Logger that drops everything.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// With returns a child Logger carrying args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// SetDefault installs l as the process-wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// Ctx returns l extended with the attributes attached to ctx by
// ContextWith. Without any it returns l unchanged.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	args, _ := ctx.Value(attrsKey{}).([]any)
	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}

type attrsKey struct{}

// ContextWith returns a copy of ctx carrying args in addition to any
// attributes already attached. Loggers resolved through Ctx include them.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// secretMarkers are matched as substrings of lowercased attribute keys, so
// "armis_password" and "kdi_api_key" are caught too.
var secretMarkers = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"bearer",
	"api_key",
	"apikey",
	"api-key",
	"access_key",
	"credential",
}

const redacted = "[REDACTED]"

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
