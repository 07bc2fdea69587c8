package batch

import "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of embedding one text in a batch. Results keep input order.
type Result struct {
	index     int
	status    ItemStatus
	embedding domain.EmbeddingResult
	err       error
}

// NewOK creates a successful batch result.
func NewOK(index int, emb domain.EmbeddingResult) Result {
	return Result{index: index, status: StatusOK, embedding: emb}
}

// NewError creates a failed batch result.
func NewError(index int, err error) Result { return Result{index: index, status: StatusError, err: err} }

// Index returns the position of the item in the input slice.
func (r Result) Index() int { return r.index }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Embedding returns the vector, zero when Status is StatusError.
func (r Result) Embedding() domain.EmbeddingResult { return r.embedding }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts outcomes of a batch.
type Summary struct {
	OK       int
	Failed   int
	Fallback int
}

// Summarize counts successes, failures and fallback vectors.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.status != StatusOK {
			s.Failed++
			continue
		}
		s.OK++
		if r.embedding.Fallback {
			s.Fallback++
		}
	}
	return s
}
