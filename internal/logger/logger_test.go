package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers verifies scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "pass-server")
	ctx = WithFields(ctx, zap.String("request_id", "abc"), zap.Int("scale", 2))

	InfoKV(ctx, "Pass built", "entries", 12)

	entries := observed.All()
	require.Len(t, entries, 1)
	require.Equal(t, "pass-server", entries[0].LoggerName)
	require.Equal(t, "Pass built", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["request_id"])
	require.EqualValues(t, 2, fields["scale"])
	require.EqualValues(t, 12, fields["entries"])
}

// TestFromContext_Fallback returns the global logger when none is stored.
func TestFromContext_Fallback(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestConfigure_Rejects reports unknown level and format names.
func TestConfigure_Rejects(t *testing.T) {
	t.Parallel()

	require.Error(t, Configure("loud", ""))
	require.ErrorIs(t, Configure("", "xml"), errUnknownFormat)
}

// TestWithLevel raises the threshold of a derived logger only.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	quiet := base.WithOptions(WithLevel(zapcore.WarnLevel)).Sugar()

	quiet.Info("dropped")
	quiet.Warn("kept")
	base.Sugar().Info("base kept")

	entries := observed.All()
	require.Len(t, entries, 2)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "base kept", entries[1].Message)
}

// TestWithLogLevel scopes a threshold to the context it is stored in.
func TestWithLogLevel(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	base := ToContext(context.Background(), zap.New(core).Sugar())
	quiet := WithLogLevel(base, zapcore.ErrorLevel)

	WarnKV(quiet, "dropped")
	ErrorKV(quiet, "kept")
	WarnKV(base, "base kept")

	entries := observed.All()
	require.Len(t, entries, 2)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "base kept", entries[1].Message)
}
