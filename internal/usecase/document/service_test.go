package document

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/chunking"
)

// --- Mocks ---

type mockRepo struct {
	docs          map[string]domdoc.Document
	chunks        map[string]chunk.Chunk
	statuses      []domdoc.Status
	getErr        error
	putChunksErr  error
	deletedChunks []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: map[string]domdoc.Document{}, chunks: map[string]chunk.Chunk{}}
}

func (m *mockRepo) GetDocument(_ context.Context, id string) (domdoc.Document, error) {
	if m.getErr != nil {
		return domdoc.Document{}, m.getErr
	}
	d, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockRepo) PutDocument(_ context.Context, doc domdoc.Document) error {
	m.docs[doc.ID()] = doc
	m.statuses = append(m.statuses, doc.Status())
	return nil
}

func (m *mockRepo) UpdateDocumentStatus(_ context.Context, id string, status domdoc.Status) error {
	d := m.docs[id]
	m.docs[id] = domdoc.Reconstruct(d.ID(), d.Title(), d.SourceType(), status, d.URL(),
		d.ChunkCount(), d.CreatedAt(), d.UpdatedAt())
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRepo) PutChunks(_ context.Context, chunks []chunk.Chunk) error {
	if m.putChunksErr != nil {
		return m.putChunksErr
	}
	for _, c := range chunks {
		m.chunks[c.ID()] = c
	}
	return nil
}

func (m *mockRepo) DeleteDocumentChunks(_ context.Context, documentID string) error {
	m.deletedChunks = append(m.deletedChunks, documentID)
	for id, c := range m.chunks {
		if c.DocumentID() == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

// doc returns a copy of a stored document, so its pointer-receiver getters can be called.
func (m *mockRepo) doc(id string) domdoc.Document {
	return m.docs[id]
}

// storedIndices returns the chunk indices stored for documentID in ascending order.
func (m *mockRepo) storedIndices(documentID string) []int {
	var out []int
	for _, c := range m.chunks {
		if c.DocumentID() == documentID {
			out = append(out, c.Index())
		}
	}
	slices.Sort(out)
	return out
}

// mockEmbedder returns a 3-d vector per text; failing marks item indexes that error,
// fallback marks items embedded by the hash fallback.
type mockEmbedder struct {
	failing     map[int]bool
	fallback    map[int]bool
	concurrency int
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, concurrency int) []batch.Result {
	m.concurrency = concurrency
	out := make([]batch.Result, len(texts))
	for i := range texts {
		if m.failing[i] {
			out[i] = batch.NewError(i, errors.New("embed failed"))
			continue
		}
		res := domain.EmbeddingResult{Embedding: []float64{0.1, 0.2, 0.3}, Model: "bge-m3"}
		if m.fallback[i] {
			res.Model, res.Fallback = domain.FallbackModel, true
		}
		out[i] = batch.NewOK(i, res)
	}
	return out
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testOpts() chunking.Options {
	return chunking.Options{Size: 100, Overlap: 20, MinLength: 10}
}

func longText() string {
	return strings.Repeat("Meta 광고 정책은 정확한 정보를 요구합니다. ", 12)
}

func newService(repo *mockRepo, emb *mockEmbedder) *Service {
	return New(repo, emb, testOpts(), 4, nil).WithClock(func() time.Time { return fixedNow })
}

// --- Tests ---

func TestIndex_NewDocument(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{fallback: map[int]bool{1: true}}
	svc := newService(repo, emb)

	report, err := svc.Index(context.Background(), IndexRequest{
		ID: "policy-1", Title: "광고 정책", SourceType: domdoc.SourceFile, Text: longText(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != domdoc.StatusCompleted || report.Chunks == 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Fallback != 1 {
		t.Errorf("expected 1 fallback chunk, got %d", report.Fallback)
	}
	if emb.concurrency != 4 {
		t.Errorf("expected configured worker count, got %d", emb.concurrency)
	}

	want := []domdoc.Status{domdoc.StatusPending, domdoc.StatusProcessing, domdoc.StatusCompleted}
	if len(repo.statuses) != len(want) {
		t.Fatalf("status writes = %v, want %v", repo.statuses, want)
	}
	for i := range want {
		if repo.statuses[i] != want[i] {
			t.Errorf("status write %d = %s, want %s", i, repo.statuses[i], want[i])
		}
	}

	doc := repo.doc("policy-1")
	if doc.ChunkCount() != report.Chunks {
		t.Errorf("chunk count %d, report %d", doc.ChunkCount(), report.Chunks)
	}
	c, ok := repo.chunks["policy-1_chunk_0"]
	if !ok {
		t.Fatal("expected first chunk to be stored")
	}
	if md := c.Metadata(); md.Title != "광고 정책" || md.Model != "bge-m3" || md.Dimension != 3 {
		t.Errorf("unexpected chunk metadata: %+v", md)
	}
	second := repo.chunks["policy-1_chunk_1"]
	if !second.IsFallback() {
		t.Error("expected chunk 1 to be tagged as fallback")
	}
}

func TestIndex_GeneratesID(t *testing.T) {
	repo := newMockRepo()
	report, err := newService(repo, &mockEmbedder{}).Index(context.Background(), IndexRequest{Text: longText()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.DocumentID) != 36 {
		t.Errorf("expected a UUID document id, got %q", report.DocumentID)
	}
	if doc := repo.doc(report.DocumentID); doc.SourceType() != domdoc.SourceFile {
		t.Error("expected default file source type")
	}
}

func TestIndex_PartialEmbeddingFailure(t *testing.T) {
	repo := newMockRepo()
	report, err := newService(repo, &mockEmbedder{failing: map[int]bool{0: true}}).
		Index(context.Background(), IndexRequest{ID: "d", Text: longText()})
	if err != nil {
		t.Fatalf("one failed chunk must not fail the document: %v", err)
	}
	if report.Failed != 1 || report.Status != domdoc.StatusCompleted {
		t.Errorf("unexpected report: %+v", report)
	}

	got := repo.storedIndices("d")
	if len(got) != report.Chunks {
		t.Fatalf("stored %d chunks, report says %d", len(got), report.Chunks)
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("stored indices = %v, want contiguous from 0", got)
		}
		if _, ok := repo.chunks[chunk.BuildID("d", i)]; !ok {
			t.Errorf("missing chunk id %s", chunk.BuildID("d", i))
		}
	}
	if doc := repo.doc("d"); doc.ChunkCount() != len(got) {
		t.Errorf("chunk count = %d, want %d", doc.ChunkCount(), len(got))
	}
}

func TestIndex_OversizedChunksRejected(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockEmbedder{}, chunking.Options{Size: chunk.MaxContentRunes + 1000, Overlap: 200}, 4, nil).
		WithClock(func() time.Time { return fixedNow })

	report, err := svc.Index(context.Background(), IndexRequest{ID: "d", Text: strings.Repeat("정책 ", 5000)})
	if !errors.Is(err, domain.ErrInvalidChunkOptions) {
		t.Fatalf("expected ErrInvalidChunkOptions, got %v", err)
	}
	if report.Status != domdoc.StatusFailed || len(repo.chunks) != 0 {
		t.Errorf("expected a failed document without chunks, got %+v and %d chunks", report, len(repo.chunks))
	}
}

func TestIndex_AllEmbeddingsFail(t *testing.T) {
	repo := newMockRepo()
	failing := map[int]bool{}
	for i := 0; i < 100; i++ {
		failing[i] = true
	}
	report, err := newService(repo, &mockEmbedder{failing: failing}).
		Index(context.Background(), IndexRequest{ID: "d", Text: longText()})
	if !errors.Is(err, domain.ErrEmbeddingBackendUnavailable) {
		t.Fatalf("expected ErrEmbeddingBackendUnavailable, got %v", err)
	}
	stored := repo.doc("d")
	if report.Status != domdoc.StatusFailed || stored.Status() != domdoc.StatusFailed {
		t.Errorf("expected failed status, got report=%s stored=%s", report.Status, stored.Status())
	}
}

func TestIndex_StoreFailureMarksFailed(t *testing.T) {
	repo := newMockRepo()
	repo.putChunksErr = errors.New("connection reset")

	_, err := newService(repo, &mockEmbedder{}).Index(context.Background(), IndexRequest{ID: "d", Text: longText()})
	if err == nil {
		t.Fatal("expected error")
	}
	if stored := repo.doc("d"); stored.Status() != domdoc.StatusFailed {
		t.Errorf("expected failed status, got %s", stored.Status())
	}
}

func TestIndex_Reindex(t *testing.T) {
	repo := newMockRepo()
	repo.docs["d"] = domdoc.Reconstruct("d", "old", domdoc.SourceFile, domdoc.StatusCompleted, "", 40, fixedNow, fixedNow)
	repo.chunks["d_chunk_39"] = chunk.Reconstruct("d_chunk_39", "d", 39, "stale", []float64{1}, chunk.Metadata{})

	report, err := newService(repo, &mockEmbedder{}).Index(context.Background(), IndexRequest{ID: "d", Text: longText()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.chunks["d_chunk_39"]; ok {
		t.Error("stale chunk from previous run must be removed")
	}
	if stored := repo.doc("d"); stored.ChunkCount() != report.Chunks {
		t.Errorf("chunk count not updated: %d", stored.ChunkCount())
	}
}

func TestIndex_AlreadyProcessing(t *testing.T) {
	repo := newMockRepo()
	repo.docs["d"] = domdoc.Reconstruct("d", "t", domdoc.SourceFile, domdoc.StatusProcessing, "", 0, fixedNow, fixedNow)

	_, err := newService(repo, &mockEmbedder{}).Index(context.Background(), IndexRequest{ID: "d", Text: longText()})
	if !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestIndex_Validation(t *testing.T) {
	svc := newService(newMockRepo(), &mockEmbedder{})

	tests := []struct {
		name string
		req  IndexRequest
	}{
		{"empty text", IndexRequest{ID: "d", Text: "  "}},
		{"bad id", IndexRequest{ID: "a b", Text: longText()}},
		{"url without url", IndexRequest{ID: "d", SourceType: domdoc.SourceURL, Text: longText()}},
		{"too short to chunk", IndexRequest{ID: "short", Text: "짧음"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Index(context.Background(), tc.req); !errors.Is(err, domain.ErrInvalidDocument) {
				t.Errorf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestIndex_LookupError(t *testing.T) {
	repo := newMockRepo()
	repo.getErr = errors.New("timeout")
	if _, err := newService(repo, &mockEmbedder{}).Index(context.Background(), IndexRequest{ID: "d", Text: longText()}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo, &mockEmbedder{})
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}
