package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

// GeneratorConfig holds chat completion backend settings.
type GeneratorConfig struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator is a generation backend over the chat completions API.
type Generator struct {
	client      *openai.Client
	name        string
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a chat completion backend.
func NewGenerator(cfg GeneratorConfig) *Generator {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Generator{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		name:        name,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return g.name }

// Generate implements generation.Backend.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return generation.Response{}, parseAPIError("chat", err, domain.ErrGenerationBackendUnavailable)
	}
	if len(resp.Choices) == 0 {
		return generation.Response{}, fmt.Errorf("chat response has no choices: %w", domain.ErrEmptyAnswer)
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return generation.Response{Text: resp.Choices[0].Message.Content, Model: model}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
