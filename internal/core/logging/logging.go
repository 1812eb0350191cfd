// Package logging builds the zap logger shared by ensuregen commands.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs one JSON object per line for log aggregation.
	FormatJSON Format = "json"
	// FormatConsole outputs human-readable lines for terminals.
	FormatConsole Format = "console"
)

// Option configures logger creation.
type Option func(*options)

type options struct {
	output io.Writer
	fields []zap.Field
}

// WithOutput sets the log destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithFields adds static fields to every entry.
func WithFields(fields ...zap.Field) Option {
	return func(o *options) { o.fields = append(o.fields, fields...) }
}

// New builds a logger writing level and above in format. Output defaults
// to stderr so generated code written to stdout stays clean.
func New(level string, format Format, opts ...Option) (*zap.Logger, error) {
	o := &options{output: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format {
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", format, FormatJSON, FormatConsole)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(o.output), lvl)
	return zap.New(core).With(o.fields...), nil
}
