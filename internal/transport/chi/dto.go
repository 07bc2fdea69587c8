package chi

import (
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeDocumentNotFound     ErrorCode = "document_not_found"
	ErrorCodeConflict             ErrorCode = "conflict"
	ErrorCodeEmbeddingUnavailable ErrorCode = "embedding_backend_unavailable"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Query string `json:"query"`
}

// SourceResponse is one cited source.
type SourceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	SourceType string  `json:"source_type,omitempty"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

// AskResponse mirrors answer.GenerationResponse.
type AskResponse struct {
	Answer           string           `json:"answer"`
	Sources          []SourceResponse `json:"sources"`
	Confidence       float64          `json:"confidence"`
	Model            string           `json:"model"`
	IsLLMGenerated   bool             `json:"is_llm_generated"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

// IndexDocumentRequest is the body of POST /v1/documents.
type IndexDocumentRequest struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	SourceType string `json:"source_type,omitempty"`
	URL        string `json:"url,omitempty"`
	Text       string `json:"text"`
}

// IndexDocumentResponse reports one indexing run.
type IndexDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
	Failed     int    `json:"failed"`
	Fallback   int    `json:"fallback"`
}

// DocumentResponse is the body of GET /v1/documents/{id}.
type DocumentResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func askToResponse(resp answer.GenerationResponse) AskResponse {
	sources := make([]SourceResponse, len(resp.Sources))
	for i, s := range resp.Sources {
		sources[i] = SourceResponse{
			ChunkID:    s.ChunkID,
			DocumentID: s.DocumentID,
			Title:      s.Title,
			URL:        s.URL,
			SourceType: s.SourceType,
			Content:    s.Content,
			Similarity: s.Similarity,
			ChunkIndex: s.ChunkIndex,
		}
	}
	return AskResponse{
		Answer:           resp.Answer,
		Sources:          sources,
		Confidence:       resp.Confidence,
		Model:            resp.Model,
		IsLLMGenerated:   resp.IsLLMGenerated,
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}
}

func indexRequestFromDTO(req IndexDocumentRequest) documentuc.IndexRequest {
	return documentuc.IndexRequest{
		ID:         req.ID,
		Title:      req.Title,
		SourceType: domdoc.SourceType(req.SourceType),
		URL:        req.URL,
		Text:       req.Text,
	}
}

func indexReportToResponse(r documentuc.IndexReport) IndexDocumentResponse {
	return IndexDocumentResponse{
		DocumentID: r.DocumentID,
		Status:     string(r.Status),
		Chunks:     r.Chunks,
		Failed:     r.Failed,
		Fallback:   r.Fallback,
	}
}

func documentToResponse(d *domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID(),
		Title:      d.DisplayTitle(),
		SourceType: string(d.SourceType()),
		URL:        d.URL(),
		Status:     string(d.Status()),
		ChunkCount: d.ChunkCount(),
		CreatedAt:  d.CreatedAt().UTC(),
		UpdatedAt:  d.UpdatedAt().UTC(),
	}
}
