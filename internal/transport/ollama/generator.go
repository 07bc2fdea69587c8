package ollama

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

// GeneratorConfig holds local model settings.
type GeneratorConfig struct {
	Name        string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Generator calls /api/generate without streaming.
type Generator struct {
	c           client
	name        string
	model       string
	temperature float64
	maxTokens   int
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewGenerator creates an Ollama generation backend.
func NewGenerator(cfg GeneratorConfig) *Generator {
	name := cfg.Name
	if name == "" {
		name = providerName
	}
	return &Generator{
		c:           newClient(cfg.BaseURL, cfg.HTTPClient),
		name:        name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return g.name }

// Generate implements generation.Backend.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	body := generateRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if g.maxTokens > 0 || g.temperature > 0 {
		body.Options = &options{NumPredict: g.maxTokens, Temperature: g.temperature}
	}

	var resp generateResponse
	if err := g.c.postJSON(ctx, "/api/generate", body, &resp); err != nil {
		return generation.Response{}, fmt.Errorf("%w: %w", domain.ErrGenerationBackendUnavailable, err)
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return generation.Response{Text: resp.Response, Model: model}, nil
}

// HealthCheck pings the daemon.
func (g *Generator) HealthCheck(ctx context.Context) error {
	return g.c.ping(ctx)
}
