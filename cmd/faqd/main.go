// Command faqd serves the ad-policy FAQ assistant over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/app"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/config"
	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/telemetry"
	chiTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/chi"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "faqd:", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting faqd",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Int("generation_backends", len(cfg.Generation.Backends)),
	)

	flush, _ := telemetry.Init(telemetry.Config{
		DSN:              cfg.Telemetry.SentryDSN,
		Environment:      cfg.Telemetry.Environment,
		TracesSampleRate: cfg.Telemetry.TracesSampleRate,
		Release:          version.Version,
	}, logger)
	defer flush()

	// No init() registration anywhere: tests build their own collectors.
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRAGMetrics()
	metrics.RegisterHTTPMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	server := chiTransport.NewServer(a.RAG, a.Documents, a.Reembed, a.Health, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           newRouter(server, cfg.Auth.APIKeys, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
