// pattern: Imperative Shell

package logging

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider hands out scoped loggers. Manager and TestLogManager both
// implement it.
type LoggerProvider interface {
	For(scope string) *ScopedLogger
}

// ScopedLogger is a slog-style logger bound to a scope such as "scan" or
// "delete". The zero value and NopLogger discard everything.
type ScopedLogger struct {
	slog  *slog.Logger
	scope string
}

// NopLogger returns a logger that discards all output.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

func (l *ScopedLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *ScopedLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *ScopedLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *ScopedLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *ScopedLogger) log(level slog.Level, msg string, args []any) {
	if l == nil || l.slog == nil {
		return
	}
	l.slog.Log(context.Background(), level, msg, args...)
}

// With returns a logger that adds args to every entry.
func (l *ScopedLogger) With(args ...any) *ScopedLogger {
	if l == nil || l.slog == nil {
		return l
	}
	return &ScopedLogger{slog: l.slog.With(args...), scope: l.scope}
}

// Scope returns the scope the logger was created for.
func (l *ScopedLogger) Scope() string {
	if l == nil {
		return ""
	}
	return l.scope
}

// scopeCache builds and memoizes one ScopedLogger per scope on top of a
// shared zap logger.
type scopeCache struct {
	base    *zap.Logger
	level   zapcore.Level
	mu      sync.Mutex
	loggers map[string]*ScopedLogger
}

func newScopeCache(base *zap.Logger, level zapcore.Level) *scopeCache {
	return &scopeCache{base: base, level: level, loggers: make(map[string]*ScopedLogger)}
}

func (c *scopeCache) get(scope string) *ScopedLogger {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.loggers[scope]; ok {
		return l
	}
	l := &ScopedLogger{
		slog:  slog.New(&zapHandler{zap: c.base.Named(scope), level: c.level}),
		scope: scope,
	}
	c.loggers[scope] = l
	return l
}

// encoderConfig is shared by every JSON core so the channel sink can parse
// what the file receives.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.EpochTimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

// zapHandler routes slog records into a zap logger.
type zapHandler struct {
	zap   *zap.Logger
	level zapcore.Level
	attrs []zap.Field
}

func (h *zapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZapLevel(level) >= h.level
}

func (h *zapHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]zap.Field, 0, len(h.attrs)+r.NumAttrs())
	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
		return true
	})
	if ce := h.zap.Check(toZapLevel(r.Level), r.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &zapHandler{zap: h.zap, level: h.level}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, zap.Any(a.Key, a.Value.Any()))
	}
	return next
}

func (h *zapHandler) WithGroup(name string) slog.Handler {
	return &zapHandler{zap: h.zap.Named(name), level: h.level, attrs: h.attrs}
}

func toZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
