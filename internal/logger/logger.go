// Package logger provides structured logging on top of log/slog with the
// active trace id attached to every record. Records are also bridged to the
// OpenTelemetry log provider, which exports them once telemetry is enabled.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// Level mirrors slog levels so callers do not import slog directly.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// TraceIDFn extracts a trace id from a context; an empty string means none.
type TraceIDFn func(ctx context.Context) string

// Logger writes structured records for one service.
type Logger struct {
	handler   slog.Handler
	traceIDFn TraceIDFn
}

// Option customises a Logger.
type Option func(*options)

type options struct {
	provider otellog.LoggerProvider
}

// WithLoggerProvider sends bridged records to lp instead of the global
// provider. A nil lp disables the bridge.
func WithLoggerProvider(lp otellog.LoggerProvider) Option {
	return func(o *options) { o.provider = lp }
}

// New returns a JSON logger. A nil traceIDFn falls back to the OpenTelemetry
// span in the context.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, opts ...Option) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: minLevel})
	return newLogger(h, minLevel, serviceName, traceIDFn, opts)
}

// NewConsole returns a human-readable text logger.
func NewConsole(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, opts ...Option) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel})
	return newLogger(h, minLevel, serviceName, traceIDFn, opts)
}

func newLogger(h slog.Handler, minLevel Level, serviceName string, traceIDFn TraceIDFn, opts []Option) *Logger {
	o := options{provider: global.GetLoggerProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider != nil {
		bridge := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(o.provider))
		h = &fanout{min: minLevel, handlers: []slog.Handler{h, bridge}}
	}
	if traceIDFn == nil {
		traceIDFn = SpanTraceID
	}
	return &Logger{
		handler:   h.WithAttrs([]slog.Attr{slog.String("service", serviceName)}),
		traceIDFn: traceIDFn,
	}
}

// SpanTraceID returns the trace id of the span stored in ctx, if valid.
func SpanTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{handler: l.handler.WithAttrs(argsToAttrs(args)), traceIDFn: l.traceIDFn}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args...)
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args ...any) {
	if l == nil || !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(timeNow(), level, msg, 0)
	r.Add(args...)
	if id := l.traceIDFn(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	_ = l.handler.Handle(ctx, r)
}

func argsToAttrs(args []any) []slog.Attr {
	var r slog.Record
	r.Add(args...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

// fanout hands every record at or above min to each handler that accepts it.
type fanout struct {
	min      Level
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	if level < f.min {
		return false
	}
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &fanout{min: f.min, handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f *fanout) WithGroup(name string) slog.Handler {
	out := &fanout{min: f.min, handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = h.WithGroup(name)
	}
	return out
}
