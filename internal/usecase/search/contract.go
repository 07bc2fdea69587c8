package search

import (
	"context"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// ChunkReader loads candidate chunks for brute-force scoring.
type ChunkReader interface {
	GetChunksForSearch(ctx context.Context, limit int) ([]chunk.Chunk, error)
}

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
