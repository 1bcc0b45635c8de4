package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// scopedCore replaces the threshold of the core it wraps. It can raise or
// lower the level, so a request logger may be quieter or louder than the
// server logger it was derived from.
type scopedCore struct {
	zapcore.Core

	// threshold is the lowest level the scoped logger writes.
	threshold zapcore.Level
}

// Enabled reports whether lvl reaches the scoped threshold.
func (c *scopedCore) Enabled(lvl zapcore.Level) bool {
	return c.threshold.Enabled(lvl)
}

// Check registers the scoped core for entries at or above the threshold.
//
//nolint:gocritic // zapcore.Core fixes the by-value entry signature.
func (c *scopedCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return checked
	}

	return checked.AddCore(entry, c)
}

// With keeps the threshold on cores derived with extra fields.
//
//nolint:ireturn // zapcore.Core is the contract.
func (c *scopedCore) With(fields []zapcore.Field) zapcore.Core {
	return &scopedCore{
		Core:      c.Core.With(fields),
		threshold: c.threshold,
	}
}

// WithLevel returns an option that swaps the threshold of a derived logger
// for lvl. The parent logger keeps its own level. See WithLogLevel for the
// context form used by request handlers.
//
//nolint:ireturn // zap.Option is the contract.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &scopedCore{
			Core:      core,
			threshold: lvl,
		}
	})
}
