package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float64{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_document: ")

	result, err := emb.Embed(context.Background(), "광고 정책")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_document: 광고 정책" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if result.Dimension() != 3 {
		t.Errorf("expected 3-element vector, got %d", result.Dimension())
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "search_query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_HealthCheckWithoutSupport(t *testing.T) {
	emb := NewInstructionEmbedder(&stubEmbedder{}, "")
	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for inner without health check, got %v", err)
	}
}

func TestComparable(t *testing.T) {
	tests := []struct {
		name          string
		queryFallback bool
		chunkModel    string
		want          bool
	}{
		{"real query, real chunk", false, "bge-m3", true},
		{"real query, fallback chunk", false, FallbackModel, false},
		{"fallback query, fallback chunk", true, FallbackModel, true},
		{"fallback query, real chunk", true, "bge-m3", false},
		{"real query, untagged chunk", false, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Comparable(tc.queryFallback, tc.chunkModel); got != tc.want {
				t.Errorf("Comparable(%v, %q) = %v, want %v", tc.queryFallback, tc.chunkModel, got, tc.want)
			}
		})
	}
}

func TestNewBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendError("ollama", cause)

	if !errors.Is(err, ErrGenerationBackendUnavailable) {
		t.Error("expected ErrGenerationBackendUnavailable in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != "ollama" {
		t.Errorf("expected BackendError for ollama, got %v", err)
	}
}
