package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
)

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "예산 설정 안내"}, {"text": "입니다."}},
				},
			}},
		})
	}))
	defer server.Close()

	gen, err := NewGenerator(context.Background(), Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "gemini-test",
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	resp, err := gen.Generate(context.Background(), generation.Request{System: "sys", Prompt: "예산"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "예산 설정 안내입니다." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Model != "gemini-test" || gen.Name() != "gemini" {
		t.Errorf("unexpected identity: model=%q name=%q", resp.Model, gen.Name())
	}
}

func TestGenerator_ForwardsMaxTokens(t *testing.T) {
	var body struct {
		GenerationConfig struct {
			MaxOutputTokens int     `json:"maxOutputTokens"`
			Temperature     float64 `json:"temperature"`
		} `json:"generationConfig"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "안내"}}},
			}},
		})
	}))
	defer server.Close()

	gen, err := NewGenerator(context.Background(), Config{
		APIKey: "test-key", BaseURL: server.URL, Model: "gemini-test", Temperature: 0.5, MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	if _, err := gen.Generate(context.Background(), generation.Request{Prompt: "q"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if body.GenerationConfig.MaxOutputTokens != 256 {
		t.Errorf("maxOutputTokens = %d, want 256", body.GenerationConfig.MaxOutputTokens)
	}
	if body.GenerationConfig.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", body.GenerationConfig.Temperature)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	gen, err := NewGenerator(context.Background(), Config{APIKey: "bad", BaseURL: server.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	_, err = gen.Generate(context.Background(), generation.Request{Prompt: "q"})
	if !errors.Is(err, domain.ErrGenerationBackendUnavailable) {
		t.Fatalf("expected ErrGenerationBackendUnavailable, got %v", err)
	}
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), Config{Model: "m"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestResponseText(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: nil},
			{Content: genai.NewContentFromText("답변", genai.RoleModel)},
		},
	}
	if got := responseText(resp); got != "답변" {
		t.Errorf("responseText = %q", got)
	}
}
