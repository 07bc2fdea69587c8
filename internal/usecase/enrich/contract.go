package enrich

import (
	"context"

	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// DocumentLookup resolves document metadata in one batched call.
// Ids missing from the returned map are treated as deleted.
type DocumentLookup interface {
	GetDocuments(ctx context.Context, ids []string) (map[string]domdoc.Document, error)
}
