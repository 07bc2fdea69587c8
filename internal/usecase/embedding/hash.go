package embedding

import (
	"context"
	"unicode/utf16"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

// LCG parameters for the pseudo-vector stream.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 2147483647
)

// HashEmbedder produces deterministic pseudo-vectors seeded by a hash of the text.
// Vectors carry no semantics and are tagged with domain.FallbackModel.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder for the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dimension: dimension}
}

// Embed never fails and never blocks.
func (h *HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{
		Embedding: HashVector(text, h.dimension),
		Model:     domain.FallbackModel,
		Fallback:  true,
	}, nil
}

// HashVector fills dimension values in [-1, 1] from an LCG seeded by a
// 31-multiplier string hash over the UTF-16 code units of text.
func HashVector(text string, dimension int) []float64 {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = (h << 5) - h + int32(c)
	}

	seed := int64(h)
	if seed < 0 {
		seed = -seed
	}

	vec := make([]float64, dimension)
	for i := range vec {
		seed = (seed*lcgMultiplier + lcgIncrement) % lcgModulus
		vec[i] = (float64(seed)/lcgModulus)*2 - 1
	}
	return vec
}
