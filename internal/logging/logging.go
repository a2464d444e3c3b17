// Package logging builds the process logger: zap underneath, exposed as a
// *slog.Logger so internal packages depend only on log/slog.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger.
type Config struct {
	Level string
	// Development switches to human-readable console output without sampling.
	Development bool
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

// New returns a slog logger backed by zap and a function flushing buffered
// entries, to be called before exit.
func New(cfg Config) (*slog.Logger, func() error, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Sampling = nil
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zapCfg.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	z, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}

	logger := slog.New(zapslog.NewHandler(z.Core(), zapslog.WithCaller(true)))
	return logger, z.Sync, nil
}

// ParseLevel converts a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
