// Package logger builds the zap loggers used by faqd and faqctl.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log line.
const ServiceName = "faq-assistant"

// NewLogger creates a zap logger for env.
//
//	prod               JSON, ISO8601 timestamps, sampled
//	local, dev, docker colored console
//	test               discards everything
//
// level, when non-empty, replaces the environment default (debug, info, warn, error).
func NewLogger(env string, level ...string) (*zap.Logger, error) {
	cfg, err := configFor(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return zap.NewNop(), nil
	}

	if len(level) > 0 && level[0] != "" {
		lvl, err := zapcore.ParseLevel(level[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", ServiceName), zap.String("env", env)),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// configFor returns nil for the test environment.
func configFor(env string) (*zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return &cfg, nil
	case "local", "dev", "docker":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
		return &cfg, nil
	case "test":
		return nil, nil //nolint:nilnil // test discards logs
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
}
