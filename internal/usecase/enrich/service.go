// Package enrich joins search hits with their parent document metadata.
package enrich

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/search/result"
)

// Service enriches search results with document titles and URLs.
type Service struct {
	docs    DocumentLookup
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an enrichment service. timeout bounds the batched lookup.
func New(docs DocumentLookup, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{docs: docs, timeout: timeout, logger: logger}
}

// Enrich returns one source per result, in result order. It never fails:
// documents that cannot be resolved get the placeholder title.
func (s *Service) Enrich(ctx context.Context, results []result.Result) []answer.EnrichedSource {
	out := make([]answer.EnrichedSource, 0, len(results))
	if len(results) == 0 {
		return out
	}

	ids := uniqueDocumentIDs(results)

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.docs.GetDocuments(lookupCtx, ids)
	if err != nil {
		s.logger.Warn("Document lookup failed, using placeholder titles",
			zap.Int("documents", len(ids)),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrDocumentLookupFailed, err)),
		)
		docs = nil
	}

	for i := range results {
		r := &results[i]
		docID := documentIDOf(r)
		doc, ok := docs[docID]
		out = append(out, toSource(r, docID, doc, ok))
	}
	return out
}

func toSource(r *result.Result, docID string, doc domdoc.Document, resolved bool) answer.EnrichedSource {
	md := r.Metadata()
	src := answer.EnrichedSource{
		ChunkID:    r.ChunkID(),
		DocumentID: docID,
		Title:      domdoc.PlaceholderTitle,
		URL:        md.URL,
		SourceType: md.SourceType,
		Content:    r.Content(),
		Similarity: r.Similarity(),
		ChunkIndex: r.Index(),
	}
	if !resolved {
		return src
	}
	src.Title = doc.DisplayTitle()
	src.URL = doc.URL()
	src.SourceType = string(doc.SourceType())
	src.Resolved = true
	return src
}

// documentIDOf prefers the stored document id and falls back to parsing the chunk id.
func documentIDOf(r *result.Result) string {
	if id := r.DocumentID(); id != "" {
		return id
	}
	return chunk.DocumentIDOf(r.ChunkID())
}

func uniqueDocumentIDs(results []result.Result) []string {
	seen := make(map[string]struct{}, len(results))
	ids := make([]string, 0, len(results))
	for i := range results {
		id := documentIDOf(&results[i])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
