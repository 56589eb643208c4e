// Package logging builds the zap loggers used by training runs
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger at the given level ("debug", "info",
// "warn", "error") that writes errors to stderr and everything else to
// stdout. Every entry carries the worker rank.
func New(level string, rank int) (*zap.Logger, error) {
	return NewWithWriters(os.Stdout, os.Stderr, level, rank)
}

// NewWithWriters is like New but writes to out and errOut
func NewWithWriters(out, errOut io.Writer, level string,
	rank int) (*zap.Logger, error) {
	var min zapcore.Level
	if level == "" {
		level = "info"
	}
	if err := min.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel && lvl >= min
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl < zapcore.ErrorLevel && lvl >= min
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(errOut), isErrorLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(out), isInfoLevel),
	)
	return zap.New(core, zap.AddCaller()).With(zap.Int("rank", rank)), nil
}
