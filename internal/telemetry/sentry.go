// Package telemetry reports unexpected failures to Sentry.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const serverName = "faq-assistant"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Release          string
}

// Init initializes Sentry and returns a function that flushes pending events.
// With an empty DSN every capture is a no-op.
func Init(cfg Config, logger *zap.Logger) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		ServerName:       serverName,
	})
	if err != nil {
		logger.Warn("Sentry init failed, continuing without error reporting", zap.Error(err))
		return func() {}, nil
	}

	logger.Info("Sentry initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("traces_sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// CaptureError captures an error with the hub carried by ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records a step on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	b := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(b, nil)
		return
	}
	sentry.AddBreadcrumb(b)
}
