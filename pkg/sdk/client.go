package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/app"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/config"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

// errAskFailed marks a failed pipeline in metrics. Ask itself never returns it.
var errAskFailed = errors.New("ask pipeline failed")

// Internal interfaces for substitution in tests.
type askUseCase interface {
	Ask(ctx context.Context, query string) answer.GenerationResponse
}

type documentUseCase interface {
	Index(ctx context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

type reembedUseCase interface {
	Reembed(ctx context.Context, limit int) (batchuc.Report, error)
}

// Client is the FAQ assistant SDK entry point.
type Client struct {
	askSvc     askUseCase
	docSvc     documentUseCase
	reembedSvc reembedUseCase
	healthSvc  healthUseCase
	closeFn    func()
	obs        *observer
}

// New creates a Client and connects to the chunk store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &clientConfig{}
	for _, o := range opts {
		o.apply(c)
	}

	cfg, err := buildConfig(c)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(c.logger, c.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, zap.NewNop(), appOptions(c)...)
	if err != nil {
		return nil, fmt.Errorf("faq: %w", err)
	}

	return &Client{
		askSvc:     a.RAG,
		docSvc:     a.Documents,
		reembedSvc: a.Reembed,
		healthSvc:  a.Health,
		closeFn:    a.Close,
		obs:        obs,
	}, nil
}

// buildConfig maps client options onto the service configuration.
func buildConfig(c *clientConfig) (config.Config, error) {
	cfg := config.Default()
	switch c.driver {
	case "redis":
		if len(c.addrs) == 0 || c.addrs[0] == "" {
			return cfg, errors.New("faq: redis address required")
		}
	case "postgres":
		if c.postgresURL == "" {
			return cfg, errors.New("faq: postgres url required")
		}
	default:
		return cfg, errors.New("faq: chunk store required (use WithRedis or WithPostgres)")
	}

	cfg.Database = config.DatabaseConfig{
		Driver:      c.driver,
		Addrs:       c.addrs,
		Password:    c.password,
		URL:         c.postgresURL,
		AutoMigrate: c.autoMigrate,
	}
	cfg.Embedding = config.EmbeddingConfig{
		Provider:   "embedserver",
		BaseURL:    c.embedBaseURL,
		Model:      c.embedModel,
		Dimensions: c.dimensions,
		Cache:      c.cache,
	}
	if c.embedder != nil && c.embedModel == "" {
		cfg.Embedding.Model = customModel
	}
	cfg.Generation.SystemPrompt = c.systemPrompt
	if c.searchSet {
		cfg.Search.TopK = c.topK
		cfg.Search.Threshold = c.threshold
	}
	if c.chunkingSet {
		cfg.Chunking.Size = c.chunkSize
		cfg.Chunking.Overlap = c.overlap
	}
	cfg.ApplyDefaults()

	if err := cfg.Chunking.Validate(); err != nil {
		return cfg, fmt.Errorf("faq: %w", err)
	}
	if err := cfg.Search.Validate(); err != nil {
		return cfg, fmt.Errorf("faq: %w", err)
	}
	return cfg, nil
}

func appOptions(c *clientConfig) []app.Option {
	var opts []app.Option
	switch {
	case c.embedder != nil:
		opts = append(opts, app.WithPrimaryEmbedder(&embedderAdapter{inner: c.embedder}))
	case c.embedBaseURL == "":
		opts = append(opts, app.WithPrimaryEmbedder(noopEmbedder{}))
	}

	slots := make([]generation.Slot, 0, len(c.backends))
	for _, b := range c.backends {
		slots = append(slots, generation.Slot{Backend: &backendAdapter{inner: b.backend}, Timeout: b.timeout})
	}
	// Always override: the SDK never reads backends from a config file.
	opts = append(opts, app.WithBackends(slots...))
	return opts
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ask answers a question from the indexed documents. It never fails:
// an empty retrieval or a broken pipeline yields a canned apology.
func (c *Client) Ask(ctx context.Context, question string) Answer {
	start := time.Now()
	resp := c.askSvc.Ask(ctx, question)

	var err error
	if resp.Model == answer.ModelError {
		err = errAskFailed
	}
	c.obs.observe("ask", start, err,
		slog.String("model", resp.Model),
		slog.Float64("confidence", resp.Confidence),
		slog.Int("sources", len(resp.Sources)),
	)
	c.obs.answered(answerSource(resp))

	return toAnswer(resp)
}

func answerSource(resp answer.GenerationResponse) string {
	if resp.IsLLMGenerated {
		return "llm"
	}
	return resp.Model
}

// Index chunks, embeds and stores a document. Re-indexing an id replaces its chunks.
func (c *Client) Index(ctx context.Context, req IndexRequest) (report IndexReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index", start, err) }()

	src := domdoc.SourceFile
	if req.URL != "" {
		src = domdoc.SourceURL
	}
	r, err := c.docSvc.Index(ctx, documentuc.IndexRequest{
		ID:         req.ID,
		Title:      req.Title,
		SourceType: src,
		URL:        req.URL,
		Text:       req.Text,
	})
	if err != nil {
		return IndexReport{}, fmt.Errorf("index: %w", err)
	}
	return IndexReport{
		DocumentID:     r.DocumentID,
		Status:         string(r.Status),
		Chunks:         r.Chunks,
		FallbackChunks: r.Fallback,
		FailedChunks:   r.Failed,
	}, nil
}

// Document returns a stored document by id.
func (c *Client) Document(ctx context.Context, id string) (info DocumentInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("document", start, err) }()

	d, err := c.docSvc.Get(ctx, id)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("get document: %w", err)
	}
	return DocumentInfo{
		ID:         d.ID(),
		Title:      d.Title(),
		SourceType: string(d.SourceType()),
		URL:        d.URL(),
		Status:     string(d.Status()),
		ChunkCount: d.ChunkCount(),
		CreatedAt:  d.CreatedAt(),
		UpdatedAt:  d.UpdatedAt(),
	}, nil
}

// Reembed replaces up to limit fallback vectors with primary model vectors.
// A non-positive limit means the default batch size.
func (c *Client) Reembed(ctx context.Context, limit int) (report ReembedReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reembed", start, err) }()

	r, err := c.reembedSvc.Reembed(ctx, limit)
	if err != nil {
		return ReembedReport{}, fmt.Errorf("reembed: %w", err)
	}
	return ReembedReport{
		Scanned:       r.Scanned,
		Upgraded:      r.Upgraded,
		StillFallback: r.StillFallback,
		Failed:        r.Failed,
		Stale:         r.Stale,
	}, nil
}

func toAnswer(resp answer.GenerationResponse) Answer {
	sources := make([]Source, len(resp.Sources))
	for i, s := range resp.Sources {
		sources[i] = Source{
			DocumentID: s.DocumentID,
			ChunkID:    s.ChunkID,
			Title:      s.Title,
			URL:        s.URL,
			SourceType: s.SourceType,
			Excerpt:    s.Content,
			Similarity: s.Similarity,
		}
	}
	return Answer{
		Answer:         resp.Answer,
		Sources:        sources,
		Confidence:     resp.Confidence,
		Model:          resp.Model,
		LLMGenerated:   resp.IsLLMGenerated,
		ProcessingTime: time.Duration(resp.ProcessingTimeMs) * time.Millisecond,
	}
}
