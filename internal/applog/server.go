package applog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewServerLogger builds the structured JSON logger used by the
// institutional server and broker request paths: info level by
// default, debug when devMode is set (local development/testing),
// ISO8601 timestamps, stacktraces captured from error level up.
func NewServerLogger(devMode bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if devMode {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Development = true
	}
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// MustServerLogger builds a server logger or exits the process; meant
// for use in cmd/ main functions where there is no sane fallback if
// the logger itself cannot be constructed.
func MustServerLogger(devMode bool) *zap.Logger {
	logger, err := NewServerLogger(devMode)
	if err != nil {
		// The logger failed to build, so fall back to the stdlib logger
		// for this one diagnostic line.
		panic(err)
	}
	return logger
}
