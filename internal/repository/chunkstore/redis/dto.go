package redis

import (
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// Chunk hash fields.
const (
	fieldDocumentID = "document_id"
	fieldIndex      = "chunk_index"
	fieldContent    = "content"
	fieldVector     = "vector"
	fieldModel      = "model"
	fieldDimension  = "dimension"
	fieldTitle      = "title"
	fieldSourceType = "source_type"
	fieldURL        = "url"
	fieldChunkType  = "chunk_type"
)

// Document hash fields.
const (
	fieldStatus     = "status"
	fieldChunkCount = "chunk_count"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

// buildChunkFields converts a Chunk into a flat map[string]string for HSET.
func buildChunkFields(c *chunk.Chunk) map[string]string {
	md := c.Metadata()
	return map[string]string{
		fieldDocumentID: c.DocumentID(),
		fieldIndex:      strconv.Itoa(c.Index()),
		fieldContent:    c.Content(),
		fieldVector:     rueidis.VectorString64(c.Embedding()),
		fieldModel:      md.Model,
		fieldDimension:  strconv.Itoa(md.Dimension),
		fieldTitle:      md.Title,
		fieldSourceType: md.SourceType,
		fieldURL:        md.URL,
		fieldChunkType:  string(md.ChunkType),
	}
}

// buildVectorFields returns only the embedding fields of a chunk hash.
func buildVectorFields(c *chunk.Chunk) map[string]string {
	md := c.Metadata()
	return map[string]string{
		fieldVector:    rueidis.VectorString64(c.Embedding()),
		fieldModel:     md.Model,
		fieldDimension: strconv.Itoa(md.Dimension),
	}
}

// parseChunkFields converts a chunk hash back into a Chunk.
// A vector with a torn length is dropped; search skips it as a dimension mismatch.
func parseChunkFields(id string, m map[string]string) chunk.Chunk {
	index, _ := strconv.Atoi(m[fieldIndex])
	dim, _ := strconv.Atoi(m[fieldDimension])

	var vec []float64
	if raw := m[fieldVector]; len(raw)%8 == 0 {
		vec = rueidis.ToVector64(raw)
	}

	docID := m[fieldDocumentID]
	if docID == "" {
		docID = chunk.DocumentIDOf(id)
	}

	return chunk.Reconstruct(id, docID, index, m[fieldContent], vec, chunk.Metadata{
		Title:      m[fieldTitle],
		SourceType: m[fieldSourceType],
		URL:        m[fieldURL],
		Model:      m[fieldModel],
		Dimension:  dim,
		ChunkType:  chunk.Type(m[fieldChunkType]),
	})
}

func buildDocumentFields(d *domdoc.Document) map[string]string {
	return map[string]string{
		fieldTitle:      d.Title(),
		fieldSourceType: string(d.SourceType()),
		fieldStatus:     string(d.Status()),
		fieldURL:        d.URL(),
		fieldChunkCount: strconv.Itoa(d.ChunkCount()),
		fieldCreatedAt:  formatTime(d.CreatedAt()),
		fieldUpdatedAt:  formatTime(d.UpdatedAt()),
	}
}

func parseDocumentFields(id string, m map[string]string) domdoc.Document {
	count, _ := strconv.Atoi(m[fieldChunkCount])
	return domdoc.Reconstruct(
		id,
		m[fieldTitle],
		domdoc.SourceType(m[fieldSourceType]),
		domdoc.Status(m[fieldStatus]),
		m[fieldURL],
		count,
		parseTime(m[fieldCreatedAt]),
		parseTime(m[fieldUpdatedAt]),
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
