// Package logging wraps zap with the small configuration surface the daemon
// needs: a level, a development toggle, and output paths.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger embeds zap.Logger so call sites use zap fields directly.
type Logger struct {
	*zap.Logger
}

// Config selects the log level and output.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
}

// New builds a logger. Production mode emits JSON; development mode emits
// colored console lines with stack traces on errors.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}

	encoding := "json"
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoding = "console"
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zl, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encCfg,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zl}, nil
}

// NewDefault is the production logger at info level. It never fails; a
// broken configuration degrades to a no-op logger.
func NewDefault() *Logger {
	l, err := New(Config{Level: "info"})
	if err != nil {
		return NewNop()
	}
	return l
}

// NewDevelopment is the debug-level console logger.
func NewDevelopment() *Logger {
	l, err := New(Config{Level: "debug", Development: true})
	if err != nil {
		return NewNop()
	}
	return l
}

// NewNop discards everything. Used by tests and as the fallback for
// optional logger parameters.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}
