package faq

import "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound            = domain.ErrDocumentNotFound
	ErrInvalidDocument             = domain.ErrInvalidDocument
	ErrInvalidStatusTransition     = domain.ErrInvalidStatusTransition
	ErrEmbeddingBackendUnavailable = domain.ErrEmbeddingBackendUnavailable
)
