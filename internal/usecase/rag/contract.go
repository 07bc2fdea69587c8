package rag

import (
	"context"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/search/result"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/search"
)

// ChunkStore is the storage contract shared by the Redis and Postgres adapters.
// Document status is the authoritative "searchable" signal; reads during
// ingestion may not see chunks that are still being written.
type ChunkStore interface {
	GetChunksForSearch(ctx context.Context, limit int) ([]chunk.Chunk, error)
	PutChunks(ctx context.Context, chunks []chunk.Chunk) error
	DeleteDocumentChunks(ctx context.Context, documentID string) error
	ListFallbackChunks(ctx context.Context, limit int) ([]chunk.Chunk, error)
	UpdateEmbeddings(ctx context.Context, chunks []chunk.Chunk) (int, error)

	GetDocument(ctx context.Context, id string) (domdoc.Document, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]domdoc.Document, error)
	PutDocument(ctx context.Context, doc domdoc.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status domdoc.Status) error

	Ping(ctx context.Context) error
}

// Retriever embeds a query and ranks chunks.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (search.Retrieval, error)
}

// Enricher joins results with document metadata. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, results []result.Result) []answer.EnrichedSource
}

// Generator produces an answer from enriched sources.
type Generator interface {
	Generate(ctx context.Context, query string, sources []answer.EnrichedSource) (answer.GenerationResponse, error)
}
