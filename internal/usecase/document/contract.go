package document

import (
	"context"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// Repository defines the storage contract for indexing.
type Repository interface {
	GetDocument(ctx context.Context, id string) (domdoc.Document, error)
	PutDocument(ctx context.Context, doc domdoc.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status domdoc.Status) error
	PutChunks(ctx context.Context, chunks []chunk.Chunk) error
	DeleteDocumentChunks(ctx context.Context, documentID string) error
}

// BatchEmbedder vectorizes chunk texts with bounded concurrency.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, concurrency int) []batch.Result
}
