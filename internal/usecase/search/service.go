package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/search/result"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
)

// Config holds retrieval settings.
type Config struct {
	TopK              int
	Threshold         float64
	FallbackThreshold float64
	CandidateLimit    int
	AllowMixedModels  bool
}

// Retrieval is the ranked outcome of one query.
type Retrieval struct {
	Results       []result.Result
	QueryFallback bool
	Model         string
	Stats         Stats
}

// Service embeds a query and ranks stored chunks against it.
type Service struct {
	chunks ChunkReader
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a search service.
func New(chunks ChunkReader, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{chunks: chunks, embed: embed, cfg: cfg, logger: logger}
}

// Retrieve returns the chunks most similar to query. An empty Results slice is not an error.
func (s *Service) Retrieve(ctx context.Context, query string) (Retrieval, error) {
	start := time.Now()

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Retrieval{}, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.chunks.GetChunksForSearch(ctx, s.cfg.CandidateLimit)
	if err != nil {
		return Retrieval{}, fmt.Errorf("load chunks: %w", err)
	}

	threshold := s.cfg.Threshold
	if emb.Fallback && s.cfg.FallbackThreshold > 0 {
		threshold = s.cfg.FallbackThreshold
	}

	results, stats := Rank(emb.Embedding, candidates, Options{
		TopK:             s.cfg.TopK,
		Threshold:        threshold,
		QueryFallback:    emb.Fallback,
		AllowMixedModels: s.cfg.AllowMixedModels,
	})

	if stats.SkippedDimension > 0 {
		metrics.SearchSkippedChunksTotal.WithLabelValues("dimension").Add(float64(stats.SkippedDimension))
		s.logger.Warn("Skipped chunks with mismatched dimension",
			zap.Int("skipped", stats.SkippedDimension),
			zap.Int("query_dimension", emb.Dimension()),
		)
	}
	if stats.SkippedModel > 0 {
		metrics.SearchSkippedChunksTotal.WithLabelValues("model").Add(float64(stats.SkippedModel))
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("Retrieval completed",
		zap.Int("candidates", stats.Candidates),
		zap.Int("results", len(results)),
		zap.Bool("query_fallback", emb.Fallback),
		zap.Float64("threshold", threshold),
		zap.Float64("top_similarity", result.MaxSimilarity(results)),
	)

	return Retrieval{
		Results:       results,
		QueryFallback: emb.Fallback,
		Model:         emb.Model,
		Stats:         stats,
	}, nil
}
