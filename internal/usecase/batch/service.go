// Package batch re-embeds chunks that were stored with a fallback vector.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dombatch "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// Batch size bounds for one Reembed call.
const (
	DefaultBatchSize = 100
	MaxBatchSize     = 1000
)

// Report summarizes one re-embedding pass.
type Report struct {
	Scanned       int `json:"scanned"`
	Upgraded      int `json:"upgraded"`
	StillFallback int `json:"still_fallback"`
	Failed        int `json:"failed"`
	Stale         int `json:"stale"` // re-indexed while the pass ran; left to the new index
}

// Service replaces fallback vectors with primary model vectors once the
// embedding backend is reachable again.
type Service struct {
	chunks       ChunkRepository
	embed        BatchEmbedder
	workers      int
	maxBatchSize int
	logger       *zap.Logger
}

// New creates a re-embedding service.
func New(chunks ChunkRepository, embed BatchEmbedder, workers int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{chunks: chunks, embed: embed, workers: workers, maxBatchSize: MaxBatchSize, logger: logger}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Reembed processes up to limit fallback chunks. Items that still come back
// as fallback vectors are left untouched for a later pass.
func (s *Service) Reembed(ctx context.Context, limit int) (Report, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	limit = min(limit, s.maxBatchSize)

	items, err := s.chunks.ListFallbackChunks(ctx, limit)
	if err != nil {
		return Report{}, fmt.Errorf("list fallback chunks: %w", err)
	}
	report := Report{Scanned: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].Content()
	}
	results := s.embed.EmbedBatch(ctx, texts, s.workers)

	upgraded := make([]chunk.Chunk, 0, len(items))
	for i, r := range results {
		switch {
		case r.Status() != dombatch.StatusOK:
			report.Failed++
			s.logger.Debug("Re-embed item failed", zap.String("chunk_id", items[i].ID()), zap.Error(r.Err()))
		case r.Embedding().Fallback:
			report.StillFallback++
		default:
			emb := r.Embedding()
			upgraded = append(upgraded, items[i].WithEmbedding(emb.Embedding, emb.Model))
		}
	}

	if len(upgraded) > 0 {
		written, err := s.chunks.UpdateEmbeddings(ctx, upgraded)
		if err != nil {
			return report, fmt.Errorf("write re-embedded vectors: %w", err)
		}
		report.Upgraded = written
		report.Stale = len(upgraded) - written
	}

	s.logger.Info("Re-embedding pass completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("upgraded", report.Upgraded),
		zap.Int("still_fallback", report.StillFallback),
		zap.Int("failed", report.Failed),
		zap.Int("stale", report.Stale),
	)
	return report, nil
}
