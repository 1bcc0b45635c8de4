package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerKey is the context key the scoped logger is stored under.
type loggerKey struct{}

// ToContext returns a copy of ctx carrying l.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored in ctx or the global logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}

	return Logger()
}

// WithName adds a name segment to the logger in ctx.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithFields adds zap fields to the logger in ctx.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}

	return ToContext(ctx, FromContext(ctx).With(args...))
}

// WithLogLevel replaces the threshold of the logger in ctx with lvl.
func WithLogLevel(ctx context.Context, lvl zapcore.Level) context.Context {
	return ToContext(ctx, FromContext(ctx).WithOptions(WithLevel(lvl)))
}
