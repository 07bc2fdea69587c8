package result

import "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"

// Result is a single retrieval hit. Similarity is always within [0, 1].
type Result struct {
	chunkID    string
	documentID string
	content    string
	similarity float64
	index      int
	metadata   chunk.Metadata
}

// New creates a search result.
func New(
	chunkID, documentID, content string, similarity float64,
	index int, md chunk.Metadata,
) Result {
	return Result{
		chunkID: chunkID, documentID: documentID, content: content,
		similarity: similarity, index: index, metadata: md,
	}
}

// FromChunk builds a result from a scored chunk.
func FromChunk(c *chunk.Chunk, similarity float64) Result {
	return New(c.ID(), c.DocumentID(), c.Content(), similarity, c.Index(), c.Metadata())
}

// ChunkID returns the chunk identifier.
func (r *Result) ChunkID() string { return r.chunkID }

// DocumentID returns the parent document identifier.
func (r *Result) DocumentID() string { return r.documentID }

// Content returns the chunk text.
func (r *Result) Content() string { return r.content }

// Similarity returns the clamped cosine similarity.
func (r *Result) Similarity() float64 { return r.similarity }

// Index returns the chunk index within its document.
func (r *Result) Index() int { return r.index }

// Metadata returns the chunk metadata.
func (r *Result) Metadata() chunk.Metadata { return r.metadata }

// MaxSimilarity returns the highest similarity in results, 0 when empty.
func MaxSimilarity(results []Result) float64 {
	var best float64
	for i := range results {
		if results[i].similarity > best {
			best = results[i].similarity
		}
	}
	return best
}

// MeanSimilarity returns the average similarity, 0 when empty.
func MeanSimilarity(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for i := range results {
		sum += results[i].similarity
	}
	return sum / float64(len(results))
}
