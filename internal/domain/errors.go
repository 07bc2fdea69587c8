package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals a document that failed validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidStatusTransition signals a forbidden document status change.
	ErrInvalidStatusTransition = errors.New("invalid document status transition")
	// ErrInvalidChunkOptions signals chunker options that cannot produce a window.
	ErrInvalidChunkOptions = errors.New("invalid chunk options")

	// ErrDimensionMismatch signals a vector whose length differs from the expected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingBackendUnavailable signals a primary embedding backend failure.
	ErrEmbeddingBackendUnavailable = errors.New("embedding backend unavailable")

	// ErrGenerationBackendUnavailable signals a generation backend failure.
	ErrGenerationBackendUnavailable = errors.New("generation backend unavailable")
	// ErrEmptyAnswer signals a backend that answered with nothing usable.
	ErrEmptyAnswer = errors.New("empty answer")
	// ErrAllBackendsFailed signals that every generation backend in the chain failed.
	ErrAllBackendsFailed = errors.New("all generation backends failed")

	// ErrNoRelevantResults marks a retrieval with nothing above threshold. Never surfaced to users.
	ErrNoRelevantResults = errors.New("no relevant results")
	// ErrDocumentLookupFailed signals a failed metadata lookup during source enrichment.
	ErrDocumentLookupFailed = errors.New("document lookup failed")
)

// BackendError wraps a generation backend failure with the backend name.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err as a named backend failure.
// The result always matches ErrGenerationBackendUnavailable.
func NewBackendError(backend string, err error) error {
	if !errors.Is(err, ErrGenerationBackendUnavailable) {
		err = fmt.Errorf("%w: %w", ErrGenerationBackendUnavailable, err)
	}
	return &BackendError{Backend: backend, Err: err}
}
