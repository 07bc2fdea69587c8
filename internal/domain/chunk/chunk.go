// Package chunk defines the stored retrieval unit: a slice of document text plus its vector.
package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

// idSeparator joins a document id and a chunk index.
const idSeparator = "_chunk_"

// MaxContentRunes bounds chunk content.
const MaxContentRunes = 4000

// Type classifies the shape of the chunk content.
type Type string

// Chunk content types.
const (
	TypeText  Type = "text"
	TypeTitle Type = "title"
	TypeList  Type = "list"
	TypeTable Type = "table"
)

// Metadata is denormalized document information stored next to each chunk.
type Metadata struct {
	Title      string
	SourceType string
	URL        string
	Model      string
	Dimension  int
	ChunkType  Type
}

// Chunk is an immutable piece of a document with its embedding.
type Chunk struct {
	id         string
	documentID string
	index      int
	content    string
	embedding  []float64
	metadata   Metadata
}

// BuildID returns the chunk id for a document and index.
func BuildID(documentID string, index int) string {
	return documentID + idSeparator + strconv.Itoa(index)
}

// ParseID splits a chunk id into its document id and index.
// ok is false when id does not follow the <doc>_chunk_<n> layout.
func ParseID(id string) (documentID string, index int, ok bool) {
	pos := strings.LastIndex(id, idSeparator)
	if pos <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[pos+len(idSeparator):])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:pos], n, true
}

// DocumentIDOf returns the parent document id, or id itself when it has no chunk suffix.
func DocumentIDOf(id string) string {
	if doc, _, ok := ParseID(id); ok {
		return doc
	}
	return id
}

// New validates and creates a Chunk.
func New(documentID string, index int, content string, embedding []float64, md Metadata) (Chunk, error) {
	if documentID == "" {
		return Chunk{}, fmt.Errorf("document ID is required")
	}
	if index < 0 {
		return Chunk{}, fmt.Errorf("chunk index must be non-negative, got %d", index)
	}
	if strings.TrimSpace(content) == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	if n := len([]rune(content)); n > MaxContentRunes {
		return Chunk{}, fmt.Errorf("chunk content too large (%d > %d runes)", n, MaxContentRunes)
	}
	if md.Dimension == 0 {
		md.Dimension = len(embedding)
	}
	if md.Dimension != len(embedding) {
		return Chunk{}, fmt.Errorf("metadata dimension %d does not match vector length %d", md.Dimension, len(embedding))
	}
	if md.ChunkType == "" {
		md.ChunkType = TypeText
	}

	return Chunk{
		id:         BuildID(documentID, index),
		documentID: documentID,
		index:      index,
		content:    content,
		embedding:  embedding,
		metadata:   md,
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(id, documentID string, index int, content string, embedding []float64, md Metadata) Chunk {
	return Chunk{id: id, documentID: documentID, index: index, content: content, embedding: embedding, metadata: md}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// DocumentID returns the parent document identifier.
func (c *Chunk) DocumentID() string { return c.documentID }

// Index returns the 0-based position within the document.
func (c *Chunk) Index() int { return c.index }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Embedding returns the vector.
func (c *Chunk) Embedding() []float64 { return c.embedding }

// Metadata returns the denormalized metadata.
func (c *Chunk) Metadata() Metadata { return c.metadata }

// IsFallback reports whether the vector came from the hash embedder.
func (c *Chunk) IsFallback() bool { return c.metadata.Model == domain.FallbackModel }

// WithEmbedding returns a copy carrying a new vector and model tag.
func (c *Chunk) WithEmbedding(embedding []float64, model string) Chunk {
	out := *c
	out.embedding = embedding
	out.metadata.Model = model
	out.metadata.Dimension = len(embedding)
	return out
}
