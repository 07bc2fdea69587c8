// Package anthropic adapts the Claude Messages API to a generation backend.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

const defaultMaxTokens = 1500

// Config holds Claude backend settings.
type Config struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator is a Claude generation backend.
type Generator struct {
	client      anthropic.Client
	name        string
	model       string
	temperature float64
	maxTokens   int
}

// NewGenerator creates a Claude backend. Extra request options are appended after the config-derived ones.
func NewGenerator(cfg Config, opts ...option.RequestOption) *Generator {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Generator{
		client:      anthropic.NewClient(reqOpts...),
		name:        name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return g.name }

// Generate implements generation.Backend.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(g.temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return generation.Response{}, fmt.Errorf("%w: claude API call: %w", domain.ErrGenerationBackendUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	model := string(resp.Model)
	if model == "" {
		model = g.model
	}
	return generation.Response{Text: text.String(), Model: model}, nil
}

// HealthCheck reports whether the backend is configured. Probing would spend tokens.
func (g *Generator) HealthCheck(_ context.Context) error {
	if g.model == "" {
		return fmt.Errorf("claude model is not configured: %w", domain.ErrGenerationBackendUnavailable)
	}
	return nil
}
