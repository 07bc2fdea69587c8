package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
)

type mockAsker struct {
	query     string
	resp      answer.GenerationResponse
	tokens    int
	fallbacks int
}

func (m *mockAsker) Ask(ctx context.Context, query string) answer.GenerationResponse {
	m.query = query
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	for range m.fallbacks {
		domain.UsageFromContext(ctx).AddFallback()
	}
	return m.resp
}

type mockIndexer struct {
	indexFn func(documentuc.IndexRequest) (documentuc.IndexReport, error)
	docs    map[string]domdoc.Document
}

func (m *mockIndexer) Index(_ context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error) {
	return m.indexFn(req)
}

func (m *mockIndexer) Get(_ context.Context, id string) (domdoc.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, fmt.Errorf("get %s: %w", id, domain.ErrDocumentNotFound)
	}
	return d, nil
}

type mockReembedder struct {
	limit int
}

func (m *mockReembedder) Reembed(_ context.Context, limit int) (batchuc.Report, error) {
	m.limit = limit
	return batchuc.Report{Scanned: 3, Upgraded: 2, StillFallback: 1}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	asker   *mockAsker
	indexer *mockIndexer
	reembed *mockReembedder
	health  *mockHealth
	router  http.Handler
}

func newFixture(apiKeys ...string) *fixture {
	f := &fixture{
		asker: &mockAsker{resp: answer.GenerationResponse{
			Answer:         "정책 안내: 금지된 콘텐츠는 광고할 수 없습니다.",
			Confidence:     0.7,
			Model:          "secondary",
			IsLLMGenerated: true,
			Sources: []answer.EnrichedSource{{
				ChunkID: "doc-1_chunk_0", DocumentID: "doc-1", Title: "광고 정책", Content: "c", Similarity: 0.8,
			}},
		}},
		indexer: &mockIndexer{
			indexFn: func(req documentuc.IndexRequest) (documentuc.IndexReport, error) {
				return documentuc.IndexReport{DocumentID: req.ID, Status: domdoc.StatusCompleted, Chunks: 2}, nil
			},
			docs: map[string]domdoc.Document{},
		},
		reembed: &mockReembedder{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	r := chi.NewRouter()
	NewServer(f.asker, f.indexer, f.reembed, f.health, nil).Register(r, apiKeys)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestAsk_OK(t *testing.T) {
	f := newFixture()

	rr := f.do(http.MethodPost, "/v1/ask", `{"query":"  광고 정책이 뭔가요?  "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if f.asker.query != "광고 정책이 뭔가요?" {
		t.Errorf("query passed = %q, want trimmed", f.asker.query)
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Model != "secondary" || !resp.IsLLMGenerated {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "광고 정책" {
		t.Errorf("unexpected sources: %+v", resp.Sources)
	}
}

func TestAsk_EmptySourcesEncodeAsArray(t *testing.T) {
	f := newFixture()
	f.asker.resp = answer.NoResults(3)

	rr := f.do(http.MethodPost, "/v1/ask", `{"query":"q"}`)
	if !strings.Contains(rr.Body.String(), `"sources":[]`) {
		t.Errorf("sources must encode as [], body = %s", rr.Body.String())
	}
}

func TestAsk_EmbeddingHeaders(t *testing.T) {
	f := newFixture()

	rr := f.do(http.MethodPost, "/v1/ask", `{"query":"q"}`)
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Errorf("no embedding happened, got X-Embedding-Tokens %q", rr.Header().Get("X-Embedding-Tokens"))
	}

	f.asker.tokens = 12
	rr = f.do(http.MethodPost, "/v1/ask", `{"query":"q"}`)
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "12" {
		t.Errorf("X-Embedding-Tokens = %q, want 12", got)
	}
	if got := rr.Header().Get("X-Embedding-Fallbacks"); got != "" {
		t.Errorf("X-Embedding-Fallbacks = %q, want empty", got)
	}

	f.asker.tokens = 0
	f.asker.fallbacks = 1
	rr = f.do(http.MethodPost, "/v1/ask", `{"query":"q"}`)
	if rr.Header().Get("X-Embedding-Tokens") != "0" || rr.Header().Get("X-Embedding-Fallbacks") != "1" {
		t.Errorf("unexpected headers: %v", rr.Header())
	}
}

func TestAsk_BadRequests(t *testing.T) {
	f := newFixture()
	for _, body := range []string{``, `{`, `{"query":""}`, `{"query":"   "}`} {
		rr := f.do(http.MethodPost, "/v1/ask", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestAsk_NoAuthRequired(t *testing.T) {
	f := newFixture("secret")

	rr := f.do(http.MethodPost, "/v1/ask", `{"query":"q"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without credentials", rr.Code)
	}
}

func TestIndexDocument(t *testing.T) {
	f := newFixture("secret")

	rr := f.do(http.MethodPost, "/v1/documents", `{"id":"doc-1","title":"t","text":"본문"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("without key: status = %d, want 401", rr.Code)
	}

	rr = f.do(http.MethodPost, "/v1/documents", `{"id":"doc-1","title":"t","text":"본문"}`,
		"Authorization", "Bearer secret")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp IndexDocumentResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DocumentID != "doc-1" || resp.Status != "completed" || resp.Chunks != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIndexDocument_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid", fmt.Errorf("x: %w", domain.ErrInvalidDocument), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"busy", fmt.Errorf("x: %w", domain.ErrInvalidStatusTransition), http.StatusConflict, ErrorCodeConflict},
		{"embedding", fmt.Errorf("x: %w", domain.ErrEmbeddingBackendUnavailable),
			http.StatusBadGateway, ErrorCodeEmbeddingUnavailable},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, ErrorCodeInternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.indexer.indexFn = func(documentuc.IndexRequest) (documentuc.IndexReport, error) {
				return documentuc.IndexReport{}, tc.err
			}

			rr := f.do(http.MethodPost, "/v1/documents", `{"text":"x"}`)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tc.code {
				t.Errorf("code = %s, want %s", resp.Code, tc.code)
			}
			if tc.code == ErrorCodeInternalError && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.indexer.docs["doc-1"] = domdoc.Reconstruct("doc-1", "", domdoc.SourceFile, domdoc.StatusCompleted, "", 4, now, now)

	rr := f.do(http.MethodGet, "/v1/documents/doc-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp DocumentResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != domdoc.PlaceholderTitle || resp.ChunkCount != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}

	rr = f.do(http.MethodGet, "/v1/documents/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing doc: status = %d, want 404", rr.Code)
	}
}

func TestReembed(t *testing.T) {
	f := newFixture()

	rr := f.do(http.MethodPost, "/v1/reembed?limit=50", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.reembed.limit != 50 {
		t.Errorf("limit = %d, want 50", f.reembed.limit)
	}
	var report batchuc.Report
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Upgraded != 2 || report.StillFallback != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	for _, q := range []string{"0", "-1", "abc", "100000"} {
		rr := f.do(http.MethodPost, "/v1/reembed?limit="+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", q, rr.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		f := newFixture("secret")
		f.health.report.Status = tc.status

		rr := f.do(http.MethodGet, "/health", "")
		if rr.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.status, rr.Code, tc.want)
		}
		var resp HealthResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != string(tc.status) || resp.Checks["database"] != "ok" {
			t.Errorf("unexpected body: %+v", resp)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture("secret")

	rr := f.do(http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
