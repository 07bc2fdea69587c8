package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	dombatch "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// --- Mocks ---

// mockChunks keeps chunks listed in reindexed out of UpdateEmbeddings, as a
// store does when their content changed after the listing.
type mockChunks struct {
	items     []chunk.Chunk
	listErr   error
	putErr    error
	reindexed map[string]bool
	put       []chunk.Chunk
	lastLimit int
}

func (m *mockChunks) ListFallbackChunks(_ context.Context, limit int) ([]chunk.Chunk, error) {
	m.lastLimit = limit
	if len(m.items) > limit {
		return m.items[:limit], m.listErr
	}
	return m.items, m.listErr
}

func (m *mockChunks) UpdateEmbeddings(_ context.Context, chunks []chunk.Chunk) (int, error) {
	if m.putErr != nil {
		return 0, m.putErr
	}
	for _, c := range chunks {
		if !m.reindexed[c.ID()] {
			m.put = append(m.put, c)
		}
	}
	return len(m.put), nil
}

// mockEmbedder answers per item: "ok", "fallback" or "error".
type mockEmbedder struct {
	outcome map[int]string
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, _ int) []dombatch.Result {
	out := make([]dombatch.Result, len(texts))
	for i := range texts {
		switch m.outcome[i] {
		case "error":
			out[i] = dombatch.NewError(i, errors.New("down"))
		case "fallback":
			out[i] = dombatch.NewOK(i, domain.EmbeddingResult{
				Embedding: []float64{0, 1}, Model: domain.FallbackModel, Fallback: true,
			})
		default:
			out[i] = dombatch.NewOK(i, domain.EmbeddingResult{Embedding: []float64{1, 0}, Model: "bge-m3"})
		}
	}
	return out
}

func fallbackChunk(t *testing.T, index int) chunk.Chunk {
	t.Helper()
	c, err := chunk.New("doc", index, "광고 정책 내용", []float64{0, 1}, chunk.Metadata{Model: domain.FallbackModel})
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

// --- Tests ---

func TestReembed_UpgradesRecoveredItems(t *testing.T) {
	store := &mockChunks{items: []chunk.Chunk{fallbackChunk(t, 0), fallbackChunk(t, 1), fallbackChunk(t, 2)}}
	svc := New(store, &mockEmbedder{outcome: map[int]string{1: "fallback", 2: "error"}}, 2, nil)

	report, err := svc.Reembed(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Report{Scanned: 3, Upgraded: 1, StillFallback: 1, Failed: 1}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if len(store.put) != 1 {
		t.Fatalf("expected 1 upgraded chunk written, got %d", len(store.put))
	}
	up := store.put[0]
	if up.ID() != "doc_chunk_0" || up.IsFallback() || up.Metadata().Model != "bge-m3" {
		t.Errorf("unexpected upgraded chunk: id=%s model=%s", up.ID(), up.Metadata().Model)
	}
	if up.Content() != "광고 정책 내용" {
		t.Error("content must be preserved")
	}
}

func TestReembed_Nothing(t *testing.T) {
	store := &mockChunks{}
	report, err := New(store, &mockEmbedder{}, 2, nil).Reembed(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != (Report{}) {
		t.Errorf("expected empty report, got %+v", report)
	}
	if store.lastLimit != DefaultBatchSize {
		t.Errorf("expected default limit %d, got %d", DefaultBatchSize, store.lastLimit)
	}
}

func TestReembed_LimitCapped(t *testing.T) {
	store := &mockChunks{}
	svc := New(store, &mockEmbedder{}, 2, nil).WithMaxBatchSize(5)
	if _, err := svc.Reembed(context.Background(), 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastLimit != 5 {
		t.Errorf("expected limit capped at 5, got %d", store.lastLimit)
	}
}

func TestReembed_ListError(t *testing.T) {
	listErr := errors.New("scan failed")
	_, err := New(&mockChunks{listErr: listErr}, &mockEmbedder{}, 2, nil).Reembed(context.Background(), 10)
	if !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestReembed_SkipsReindexedChunks(t *testing.T) {
	store := &mockChunks{
		items:     []chunk.Chunk{fallbackChunk(t, 0), fallbackChunk(t, 1)},
		reindexed: map[string]bool{"doc_chunk_1": true},
	}
	report, err := New(store, &mockEmbedder{}, 2, nil).Reembed(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Report{Scanned: 2, Upgraded: 1, Stale: 1}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if len(store.put) != 1 || store.put[0].ID() != "doc_chunk_0" {
		t.Errorf("unexpected writes: %d", len(store.put))
	}
}

func TestReembed_PutError(t *testing.T) {
	putErr := errors.New("write failed")
	store := &mockChunks{items: []chunk.Chunk{fallbackChunk(t, 0)}, putErr: putErr}
	_, err := New(store, &mockEmbedder{}, 2, nil).Reembed(context.Background(), 10)
	if !errors.Is(err, putErr) {
		t.Fatalf("expected put error, got %v", err)
	}
}
