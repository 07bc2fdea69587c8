package faq

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

// Embedder converts text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
// An empty Model is reported as "custom".
type EmbeddingResult struct {
	Embedding    []float64
	Model        string
	PromptTokens int
	TotalTokens  int
}

// Backend generates an answer from a system prompt and a user prompt
// that already contains the retrieved excerpts.
// A backend may also implement HealthCheck(ctx) error to take part in Health.
type Backend interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

const customModel = "custom"

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	model := r.Model
	if model == "" {
		model = customModel
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		Model:        model,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}

// noopEmbedder fails every call, so every vector is a hash fallback.
type noopEmbedder struct{}

var errNoEmbedder = errors.New("faq: embedder not configured (use WithEmbedder or WithEmbeddingServer)")

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingBackendUnavailable, errNoEmbedder)
}

func (noopEmbedder) HealthCheck(_ context.Context) error { return errNoEmbedder }

// backendAdapter wraps public Backend to satisfy generation.Backend.
type backendAdapter struct {
	inner Backend
}

func (a *backendAdapter) Name() string { return a.inner.Name() }

func (a *backendAdapter) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	text, err := a.inner.Generate(ctx, req.System, req.Prompt)
	if err != nil {
		return generation.Response{}, fmt.Errorf("generate: %w", err)
	}
	return generation.Response{Text: text, Model: a.inner.Name()}, nil
}

func (a *backendAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}
