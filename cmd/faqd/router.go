package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/telemetry"
	chiTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/chi"
)

// newRouter mounts the API behind the middleware chain. Order matters:
// the request id must exist before Sentry and the access log read it.
func newRouter(server *chiTransport.Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(logger))
	r.Use(chiTransport.SentryMiddleware)
	r.Use(accessLog(logger))
	r.Use(metrics.Middleware())
	server.Register(r, apiKeys)
	return r
}

// jsonRecoverer turns a handler panic into the API's JSON 500 and reports it.
func jsonRecoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value, re-raised for net/http
					panic(rvr)
				}
				logpkg.Or(r.Context(), logger).Error("Handler panicked",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				telemetry.CaptureError(r.Context(), fmt.Errorf("panic in %s %s: %v", r.Method, r.URL.Path, rvr))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
					Code:    chiTransport.ErrorCodeInternalError,
					Message: "internal error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog emits one line per request with the request-scoped logger,
// echoes X-Request-ID and hands the logger to handlers via the context.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}
			reqLogger := logger.With(zap.String("request_id", requestID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if tokens := ww.Header().Get("X-Embedding-Tokens"); tokens != "" {
				fields = append(fields, zap.String("embedding_tokens", tokens))
			}
			if fb := ww.Header().Get("X-Embedding-Fallbacks"); fb != "" {
				fields = append(fields, zap.String("embedding_fallbacks", fb))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
