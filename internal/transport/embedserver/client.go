// Package embedserver talks to a standalone embedding model server.
//
// Protocol: POST {base}/embed with {"text": ...} returns
// {"embedding": [...], "dimension": n, "model": "..."}.
package embedserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/version"
)

const providerName = "embedserver"

// Config holds embedding server settings.
type Config struct {
	BaseURL    string
	Model      string // used when the server omits it
	HTTPClient *http.Client
}

// Client is a domain.Embedder over the embedding server protocol.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model"`
}

// New creates an embedding server client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc, baseURL: strings.TrimRight(cfg.BaseURL, "/"), model: cfg.Model}
}

// Embed implements domain.Embedder.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	res, err := c.embed(ctx, text)
	if err != nil {
		metrics.ObserveEmbedding(providerName, c.model, start, metrics.EmbedAPIError)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingBackendUnavailable, err)
	}

	metrics.ObserveEmbedding(providerName, c.model, start, metrics.EmbedSuccess)
	return res, nil
}

func (c *Client) embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.EmbeddingResult{}, fmt.Errorf("embed server status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding")
	}
	if out.Dimension != 0 && out.Dimension != len(out.Embedding) {
		return domain.EmbeddingResult{}, fmt.Errorf("declared dimension %d, got %d: %w",
			out.Dimension, len(out.Embedding), domain.ErrDimensionMismatch)
	}

	model := out.Model
	if model == "" {
		model = c.model
	}
	return domain.EmbeddingResult{Embedding: out.Embedding, Model: model}, nil
}

// HealthCheck probes GET {base}/health.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embed server health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embed server health: status %d", resp.StatusCode)
	}
	return nil
}
