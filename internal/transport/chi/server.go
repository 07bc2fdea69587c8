// Package chi exposes the assistant over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
)

// maxBodyBytes bounds request bodies; ingested documents are the largest.
const maxBodyBytes = 8 << 20

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, query string) answer.GenerationResponse
}

// Indexer ingests and reads documents.
type Indexer interface {
	Index(ctx context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// Reembedder upgrades fallback vectors.
type Reembedder interface {
	Reembed(ctx context.Context, limit int) (batchuc.Report, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	asker         Asker
	documents     Indexer
	reembed       Reembedder
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	asker Asker,
	documents Indexer,
	reembed Reembedder,
	health HealthReporter,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:     asker,
		documents: documents,
		reembed:   reembed,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, ErrorCodeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidChunkOptions, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidStatusTransition, http.StatusConflict, ErrorCodeConflict),
		sentinelHandler(domain.ErrEmbeddingBackendUnavailable, http.StatusBadGateway, ErrorCodeEmbeddingUnavailable),
	}
	return s
}

// Register mounts the routes on r. Admin routes require one of apiKeys when any is set.
func (s *Server) Register(r chi.Router, apiKeys []string) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.Ask)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(apiKeys))
			r.Post("/documents", s.IndexDocument)
			r.Get("/documents/{id}", s.GetDocument)
			r.Post("/reembed", s.Reembed)
		})
	})
}

// Ask handles POST /v1/ask. Any non-empty query gets a 200 with an answer.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp := s.asker.Ask(ctx, query)
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, askToResponse(resp))
}

// IndexDocument handles POST /v1/documents.
func (s *Server) IndexDocument(w http.ResponseWriter, r *http.Request) {
	var req IndexDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.documents.Index(ctx, indexRequestFromDTO(req))
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, indexReportToResponse(report))
}

// GetDocument handles GET /v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// Reembed handles POST /v1/reembed?limit=N.
func (s *Server) Reembed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > batchuc.MaxBatchSize {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
				"limit must be between 1 and "+strconv.Itoa(batchuc.MaxBatchSize))
			return
		}
		limit = n
	}

	report, err := s.reembed.Reembed(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health. Only an unreachable store makes it 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	tokens, fallbacks, used := usage.Snapshot()
	if !used {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	if fallbacks > 0 {
		w.Header().Set("X-Embedding-Fallbacks", strconv.Itoa(fallbacks))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v) //nolint:wrapcheck // reported verbatim as a 400
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidDocument,
		domain.ErrInvalidChunkOptions,
		domain.ErrInvalidStatusTransition,
		domain.ErrEmbeddingBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.Or(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
