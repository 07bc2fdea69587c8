package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float64{0.1, 0.2, 0.3},
		Model:        "bge-m3",
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	// GET → ErrKeyNotFound (cache miss)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	// SET → OK (cache put)
	var setKey string
	var setTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		return nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !strings.HasPrefix(setKey, "faq:emb_cache:bge-m3:") {
		t.Fatalf("expected model-scoped cache key, got %q", setKey)
	}
	if setTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", setTTL)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float64{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	cached := encode([]float64{0.4, 0.5, 0.6})

	// GET → cached bytes
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if result.Model != "bge-m3" {
		t.Errorf("Model = %q, want bge-m3", result.Model)
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times on hit", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestEmbed_FallbackNotCached(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float64{1, 0},
		Model:     domain.FallbackModel,
		Fallback:  true,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("fallback vector must not be cached")
		return nil
	}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbed_StoreErrorsAreSoft(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{0.5}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("conn reset") }
	ms.setFn = func(context.Context, string, []byte, time.Duration) error { return errors.New("conn reset") }

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("cache failures must not fail Embed: %v", err)
	}
	if res.Embedding[0] != 0.5 {
		t.Errorf("unexpected vector: %v", res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{0.5}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner call on corrupt entry, got %d", inner.calls)
	}
}

func TestEmbed_WhitespaceVariantsShareEntry(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{0.1, 0.2, 0.3}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	entries := map[string][]byte{}
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if v, ok := entries[key]; ok {
			return v, nil
		}
		return nil, db.ErrKeyNotFound
	}
	ms.setFn = func(_ context.Context, key string, value []byte, _ time.Duration) error {
		entries[key] = value
		return nil
	}

	ctx := context.Background()
	if _, err := ce.Embed(ctx, "광고 정책 위반 시  어떻게 되나요?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ce.Embed(ctx, "  광고 정책 위반 시 어떻게\n되나요? "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{0.1, 0.2}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	// A stale 2-dim entry is ignored and the 2-dim result is not stored.
	ms.getFn = func(context.Context, string) ([]byte, error) { return encode([]float64{1, 0}), nil }
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("vector of the wrong dimension must not be cached")
		return nil
	}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestKey_ScopedByModelAndDimension(t *testing.T) {
	a := New(nil, nil, Config{Model: "bge-m3", Dimension: 1024}, nil)
	b := New(nil, nil, Config{Model: "bge-m3", Dimension: 768}, nil)
	if a.key("q") == b.key("q") {
		t.Error("different dimensions must not share keys")
	}
	if !strings.HasPrefix(a.key("q"), "faq:emb_cache:bge-m3:1024:") {
		t.Errorf("key = %q", a.key("q"))
	}
}

func TestCodec(t *testing.T) {
	in := []float64{0.1, -2.5, 1e-9}
	out, err := decode(encode(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if _, err := decode(nil); err == nil {
		t.Error("expected error for empty entry")
	}
}
