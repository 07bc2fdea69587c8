package faq

import (
	"context"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
)

// --- askUseCase mock ---

type mockAskUC struct {
	askFn func(ctx context.Context, query string) answer.GenerationResponse
}

func (m *mockAskUC) Ask(ctx context.Context, query string) answer.GenerationResponse {
	return m.askFn(ctx, query)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	indexFn func(ctx context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error)
	getFn   func(ctx context.Context, id string) (domdoc.Document, error)
}

func (m *mockDocumentUC) Index(ctx context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error) {
	return m.indexFn(ctx, req)
}

func (m *mockDocumentUC) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

// --- reembedUseCase mock ---

type mockReembedUC struct {
	reembedFn func(ctx context.Context, limit int) (batchuc.Report, error)
}

func (m *mockReembedUC) Reembed(ctx context.Context, limit int) (batchuc.Report, error) {
	return m.reembedFn(ctx, limit)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- public Embedder / Backend stubs ---

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	health error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return s.result, s.err
}

func (s *stubEmbedder) HealthCheck(_ context.Context) error { return s.health }

type stubBackend struct {
	name      string
	text      string
	err       error
	gotSystem string
	gotPrompt string
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Generate(_ context.Context, system, prompt string) (string, error) {
	s.gotSystem, s.gotPrompt = system, prompt
	return s.text, s.err
}
