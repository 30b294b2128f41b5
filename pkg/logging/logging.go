// Package logging builds the process slog.Logger on top of zap.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is console or json. Empty means console.
	Format string
	// Core replaces the zap core built from Level and Format. Tests use it
	// to capture output.
	Core zapcore.Core
}

// New returns a slog.Logger writing through zap and a sync func to call
// before exit.
func New(opts Options) (*slog.Logger, func(), error) {
	core := opts.Core
	if core == nil {
		level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}

		var cfg zap.Config
		switch strings.ToLower(defaultString(opts.Format, "console")) {
		case "json":
			cfg = zap.NewProductionConfig()
		case "console":
			cfg = zap.NewDevelopmentConfig()
			cfg.Development = false
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		default:
			return nil, nil, fmt.Errorf("logging: unknown format %q", opts.Format)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.DisableStacktrace = true
		cfg.OutputPaths = []string{"stderr"}

		zl, err := cfg.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		core = zl.Core()
	}

	h := zapslog.NewHandler(core)
	logger := slog.New(redactHandler{h})
	return logger, func() { _ = core.Sync() }, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var secretKeys = map[string]struct{}{
	"password":       {},
	"api_key":        {},
	"apikey":         {},
	"token":          {},
	"google_api_key": {},
	"neo4j_password": {},
}

// redactHandler masks attributes whose key names a secret.
type redactHandler struct{ slog.Handler }

func (h redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redact(a))
		return true
	})
	return h.Handler.Handle(ctx, clean)
}

func (h redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redact(a)
	}
	return redactHandler{h.Handler.WithAttrs(out)}
}

func (h redactHandler) WithGroup(name string) slog.Handler {
	return redactHandler{h.Handler.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[REDACTED]")
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]any, len(group))
		for i, g := range group {
			out[i] = redact(g)
		}
		return slog.Group(a.Key, out...)
	}
	return a
}
