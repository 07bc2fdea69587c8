package batch

import (
	"context"

	dombatch "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// ChunkRepository reads fallback-tagged chunks and writes upgraded vectors.
// UpdateEmbeddings skips chunks whose stored content no longer matches and
// returns how many were written.
type ChunkRepository interface {
	ListFallbackChunks(ctx context.Context, limit int) ([]chunk.Chunk, error)
	UpdateEmbeddings(ctx context.Context, chunks []chunk.Chunk) (int, error)
}

// BatchEmbedder vectorizes texts with bounded concurrency.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, concurrency int) []dombatch.Result
}
