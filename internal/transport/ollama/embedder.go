package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
)

const providerName = "ollama"

// EmbedderConfig holds embedding settings.
type EmbedderConfig struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Embedder calls /api/embeddings.
type Embedder struct {
	c     client
	model string
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbedder creates an Ollama embedder.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	return &Embedder{c: newClient(cfg.BaseURL, cfg.HTTPClient), model: cfg.Model}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	var resp embedResponse
	if err := e.c.postJSON(ctx, "/api/embeddings", embedRequest{Model: e.model, Prompt: text}, &resp); err != nil {
		metrics.ObserveEmbedding(providerName, e.model, start, metrics.EmbedAPIError)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingBackendUnavailable, err)
	}
	if len(resp.Embedding) == 0 {
		metrics.ObserveEmbedding(providerName, e.model, start, metrics.EmbedEmptyResponse)
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingBackendUnavailable)
	}

	metrics.ObserveEmbedding(providerName, e.model, start, metrics.EmbedSuccess)
	return domain.EmbeddingResult{Embedding: resp.Embedding, Model: e.model}, nil
}

// HealthCheck pings the daemon.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.c.ping(ctx)
}
