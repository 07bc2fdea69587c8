package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/chunking"
)

// statusWriteTimeout bounds the final status write, which runs even when the request ctx is gone.
const statusWriteTimeout = 5 * time.Second

// IndexRequest is one document to ingest. An empty ID gets a generated UUID.
type IndexRequest struct {
	ID         string
	Title      string
	SourceType domdoc.SourceType
	URL        string
	Text       string
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	DocumentID string
	Status     domdoc.Status
	Chunks     int
	Failed     int
	Fallback   int
}

// Service chunks, embeds and stores documents, driving the document status lifecycle.
type Service struct {
	repo    Repository
	embed   BatchEmbedder
	opts    chunking.Options
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an indexing service.
func New(repo Repository, embed BatchEmbedder, opts chunking.Options, workers int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, embed: embed, opts: opts, workers: workers, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Index stores req as a document and its chunks. A document that is already
// processing is rejected with domain.ErrInvalidStatusTransition.
func (s *Service) Index(ctx context.Context, req IndexRequest) (IndexReport, error) {
	if strings.TrimSpace(req.Text) == "" {
		return IndexReport{}, fmt.Errorf("document text is required: %w", domain.ErrInvalidDocument)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SourceType == "" {
		req.SourceType = domdoc.SourceFile
	}

	doc, err := s.begin(ctx, req)
	if err != nil {
		return IndexReport{}, err
	}
	log := logpkg.Or(ctx, s.logger).With(zap.String("document_id", doc.ID()))
	ctx = logpkg.ContextWithLogger(ctx, log)

	report, err := s.process(ctx, &doc, req.Text)
	if err != nil {
		s.fail(ctx, &doc, log, err)
		report.Status = domdoc.StatusFailed
		return report, err
	}

	log.Info("Document indexed",
		zap.Int("chunks", report.Chunks),
		zap.Int("failed", report.Failed),
		zap.Int("fallback", report.Fallback),
	)
	return report, nil
}

// Get returns a document, useful for polling indexing status.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// begin creates a pending document, or reuses an existing one for re-indexing,
// and moves it to processing.
func (s *Service) begin(ctx context.Context, req IndexRequest) (domdoc.Document, error) {
	now := s.now()

	doc, err := s.repo.GetDocument(ctx, req.ID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDocumentNotFound):
		doc, err = domdoc.New(req.ID, req.Title, req.SourceType, req.URL, now)
		if err != nil {
			return domdoc.Document{}, err
		}
		if err := s.repo.PutDocument(ctx, doc); err != nil {
			return domdoc.Document{}, fmt.Errorf("create document: %w", err)
		}
	default:
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}

	if err := doc.Transition(domdoc.StatusProcessing, now); err != nil {
		return domdoc.Document{}, err
	}
	if err := s.repo.UpdateDocumentStatus(ctx, doc.ID(), doc.Status()); err != nil {
		return domdoc.Document{}, fmt.Errorf("mark processing: %w", err)
	}
	return doc, nil
}

func (s *Service) process(ctx context.Context, doc *domdoc.Document, text string) (IndexReport, error) {
	report := IndexReport{DocumentID: doc.ID()}

	drafts, err := chunking.Split(text, doc.ID(), s.opts)
	if err != nil {
		return report, fmt.Errorf("split document: %w", err)
	}
	if len(drafts) == 0 {
		return report, fmt.Errorf("no chunk reached the minimum length: %w", domain.ErrInvalidDocument)
	}

	texts := make([]string, len(drafts))
	for i := range drafts {
		texts[i] = drafts[i].Content
	}
	results := s.embed.EmbedBatch(ctx, texts, s.workers)

	log := logpkg.Or(ctx, s.logger)
	chunks := make([]chunk.Chunk, 0, len(drafts))
	for i, r := range results {
		if r.Status() != batch.StatusOK {
			report.Failed++
			log.Warn("Chunk embedding failed",
				zap.String("chunk_id", drafts[i].ID),
				zap.Error(r.Err()),
			)
			continue
		}
		emb := r.Embedding()
		// Kept chunks are renumbered so stored indices stay contiguous from 0.
		c, err := chunk.New(doc.ID(), len(chunks), drafts[i].Content, emb.Embedding, chunk.Metadata{
			Title:      doc.Title(),
			SourceType: string(doc.SourceType()),
			URL:        doc.URL(),
			Model:      emb.Model,
			ChunkType:  drafts[i].Type,
		})
		if err != nil {
			report.Failed++
			log.Warn("Chunk rejected",
				zap.String("chunk_id", drafts[i].ID),
				zap.Error(err),
			)
			continue
		}
		if emb.Fallback {
			report.Fallback++
		}
		chunks = append(chunks, c)
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("index document: %w", err)
	}
	if len(chunks) == 0 {
		return report, fmt.Errorf("all %d chunks failed to embed: %w", len(drafts), domain.ErrEmbeddingBackendUnavailable)
	}

	if err := s.repo.DeleteDocumentChunks(ctx, doc.ID()); err != nil {
		return report, fmt.Errorf("delete previous chunks: %w", err)
	}
	if err := s.repo.PutChunks(ctx, chunks); err != nil {
		return report, fmt.Errorf("put chunks: %w", err)
	}
	report.Chunks = len(chunks)

	doc.SetChunkCount(len(chunks))
	if err := doc.Transition(domdoc.StatusCompleted, s.now()); err != nil {
		return report, err
	}
	if err := s.repo.PutDocument(ctx, *doc); err != nil {
		return report, fmt.Errorf("mark completed: %w", err)
	}
	report.Status = doc.Status()
	return report, nil
}

// fail records the failed status even if ctx was cancelled.
func (s *Service) fail(ctx context.Context, doc *domdoc.Document, log *zap.Logger, cause error) {
	log.Error("Document indexing failed", zap.Error(cause))
	if err := doc.Transition(domdoc.StatusFailed, s.now()); err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if err := s.repo.UpdateDocumentStatus(wctx, doc.ID(), doc.Status()); err != nil {
		log.Error("Failed to record failed status", zap.Error(err))
	}
}
