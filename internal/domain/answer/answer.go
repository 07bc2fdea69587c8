// Package answer holds the user-facing response of the assistant.
package answer

// Model labels for answers that did not come from a language model.
const (
	ModelNone      = "none"
	ModelRuleBased = "rule-based"
	ModelError     = "error"
)

// Canned responses.
const (
	NoResultsMessage = "죄송합니다. 질문과 관련된 정보를 찾을 수 없습니다. " +
		"다른 질문을 시도해보시거나 관리자에게 문의해주세요."
	ErrorMessage = "죄송합니다. 답변을 생성하는 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)

// EnrichedSource is a search hit joined with its parent document metadata.
type EnrichedSource struct {
	ChunkID    string
	DocumentID string
	Title      string
	URL        string
	SourceType string
	Content    string
	Similarity float64
	ChunkIndex int
	Resolved   bool
}

// GenerationResponse is what Ask returns. It is always well-formed.
type GenerationResponse struct {
	Answer           string
	Sources          []EnrichedSource
	Confidence       float64
	Model            string
	IsLLMGenerated   bool
	ProcessingTimeMs int64
}

// NoResults builds the canned response for an empty retrieval.
func NoResults(elapsedMs int64) GenerationResponse {
	return GenerationResponse{
		Answer:           NoResultsMessage,
		Sources:          []EnrichedSource{},
		Model:            ModelNone,
		ProcessingTimeMs: elapsedMs,
	}
}

// Failure builds the generic apology returned when the pipeline itself broke.
func Failure(elapsedMs int64) GenerationResponse {
	return GenerationResponse{
		Answer:           ErrorMessage,
		Sources:          []EnrichedSource{},
		Model:            ModelError,
		ProcessingTimeMs: elapsedMs,
	}
}
