// Package gemini adapts the Google Gemini API to a generation backend.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

// Config holds Gemini backend settings.
type Config struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int // 0 leaves the model default
}

// Generator is a Gemini generation backend.
type Generator struct {
	client      *genai.Client
	name        string
	model       string
	temperature float32
	maxTokens   int32
}

// NewGenerator creates a Gemini backend.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize genai client: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "gemini"
	}
	return &Generator{
		client:      client,
		name:        name,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(max(cfg.MaxTokens, 0)),
	}, nil
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return g.name }

// Generate implements generation.Backend.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return generation.Response{}, fmt.Errorf("%w: gemini API call: %w", domain.ErrGenerationBackendUnavailable, err)
	}

	return generation.Response{Text: responseText(resp), Model: g.model}, nil
}

// HealthCheck reports whether the backend is configured. Probing would spend quota.
func (g *Generator) HealthCheck(_ context.Context) error {
	if g.model == "" {
		return fmt.Errorf("gemini model is not configured: %w", domain.ErrGenerationBackendUnavailable)
	}
	return nil
}

// responseText concatenates the text parts of every candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}
