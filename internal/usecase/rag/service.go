// Package rag answers user questions from indexed documents.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/telemetry"
)

// Answer kinds reported in metrics.
const (
	kindLLM       = "llm"
	kindRuleBased = "rule_based"
	kindNoResults = "no_results"
	kindError     = "error"
)

// Service runs START -> RETRIEVE -> (NO_RESULTS | GENERATE) -> RESPONSE.
type Service struct {
	retriever        Retriever
	enricher         Enricher
	generator        Generator
	retrievalTimeout time.Duration
	logger           *zap.Logger
}

// New creates a RAG service. retrievalTimeout bounds embedding plus ranking.
func New(
	retriever Retriever, enricher Enricher, generator Generator,
	retrievalTimeout time.Duration, logger *zap.Logger,
) *Service {
	if retrievalTimeout <= 0 {
		retrievalTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever:        retriever,
		enricher:         enricher,
		generator:        generator,
		retrievalTimeout: retrievalTimeout,
		logger:           logger,
	}
}

// Ask answers query. It never returns an error or panics: degraded paths are
// signalled through Confidence, Model and IsLLMGenerated.
func (s *Service) Ask(ctx context.Context, query string) (resp answer.GenerationResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("ask panicked: %v", r)
			s.logger.Error("Recovered panic in Ask", zap.Error(err))
			telemetry.CaptureError(ctx, err)
			resp = answer.Failure(elapsedMs(start))
		}
		metrics.AnswersTotal.WithLabelValues(kindOf(resp)).Inc()
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return answer.NoResults(elapsedMs(start))
	}

	rctx, cancel := context.WithTimeout(ctx, s.retrievalTimeout)
	retrieval, err := s.retriever.Retrieve(rctx, query)
	cancel()
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			s.logger.Info("Ask cancelled during retrieval", zap.Error(ctx.Err()))
			return answer.Failure(elapsedMs(start))
		}
		// Retrieval fails closed to an empty result set.
		s.logger.Error("Retrieval failed", zap.Error(err))
		telemetry.CaptureError(ctx, err)
		return answer.NoResults(elapsedMs(start))
	}

	if len(retrieval.Results) == 0 {
		metrics.RetrievalTotal.WithLabelValues("no_results").Inc()
		s.logger.Info("No relevant results",
			zap.Int("candidates", retrieval.Stats.Candidates),
			zap.Bool("query_fallback", retrieval.QueryFallback),
		)
		return answer.NoResults(elapsedMs(start))
	}
	metrics.RetrievalTotal.WithLabelValues("results").Inc()
	telemetry.AddBreadcrumb(ctx, "rag", fmt.Sprintf("retrieved %d chunks", len(retrieval.Results)))

	sources := s.enricher.Enrich(ctx, retrieval.Results)

	resp, err = s.generator.Generate(ctx, query, sources)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("Generation failed", zap.Error(err))
			telemetry.CaptureError(ctx, err)
		}
		return answer.Failure(elapsedMs(start))
	}
	resp.ProcessingTimeMs = elapsedMs(start)

	s.logger.Info("Question answered",
		zap.String("model", resp.Model),
		zap.Bool("llm", resp.IsLLMGenerated),
		zap.Float64("confidence", resp.Confidence),
		zap.Int("sources", len(resp.Sources)),
		zap.Int64("processing_ms", resp.ProcessingTimeMs),
	)
	return resp
}

func kindOf(resp answer.GenerationResponse) string {
	switch {
	case resp.IsLLMGenerated:
		return kindLLM
	case resp.Model == answer.ModelRuleBased:
		return kindRuleBased
	case resp.Model == answer.ModelNone:
		return kindNoResults
	default:
		return kindError
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
