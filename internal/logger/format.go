package logger

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// errUnknownFormat is returned when a log format name is not recognized.
var errUnknownFormat = errors.New("unknown log format")

// NewJSON creates a *zap.SugaredLogger writing one JSON object per line,
// suited for collectors in front of the server.
func NewJSON(level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.MessageKey = "message"
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return build(zapcore.NewJSONEncoder(encoderConfig), level, options)
}

// Configure installs the global logger for the given level and format names.
// Empty values keep the defaults.
func Configure(level, format string) error {
	if level != "" {
		parsed, ok := ParseLogLevel(level)
		if !ok {
			return fmt.Errorf("unknown log level %q", level)
		}

		SetLevel(parsed)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		SetLogger(New(defaultLevel))
	case FormatJSON:
		SetLogger(NewJSON(defaultLevel))
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	return nil
}
