package search

import (
	"math"
	"sort"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/search/result"
)

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// ok is false when the vectors have different or zero length.
// A zero-norm vector or a non-finite result scores 0.
func Cosine(a, b []float64) (sim float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, true
	}
	sim = dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(sim):
		return 0, true
	case sim < 0:
		return 0, true
	case sim > 1:
		return 1, true
	}
	return sim, true
}

// Options controls ranking.
type Options struct {
	TopK      int
	Threshold float64
	// QueryFallback marks a hash fallback query vector.
	QueryFallback bool
	// AllowMixedModels scores fallback and model vectors against each other.
	AllowMixedModels bool
}

// Stats describes what happened to the candidates of one ranking.
type Stats struct {
	Candidates       int
	SkippedDimension int
	SkippedModel     int
	BelowThreshold   int
}

// Search ranks chunks against the query and returns at most topK results with
// similarity >= threshold, ordered by similarity desc then chunk index asc.
// Chunks whose vector length differs from the query are skipped.
func Search(query []float64, chunks []chunk.Chunk, topK int, threshold float64) []result.Result {
	res, _ := Rank(query, chunks, Options{TopK: topK, Threshold: threshold, AllowMixedModels: true})
	return res
}

// Rank is Search with model filtering and per-candidate accounting.
func Rank(query []float64, chunks []chunk.Chunk, opts Options) ([]result.Result, Stats) {
	stats := Stats{Candidates: len(chunks)}
	if opts.TopK <= 0 || len(query) == 0 {
		return []result.Result{}, stats
	}

	type hit struct {
		c   *chunk.Chunk
		sim float64
	}
	hits := make([]hit, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if !opts.AllowMixedModels && !domain.Comparable(opts.QueryFallback, c.Metadata().Model) {
			stats.SkippedModel++
			continue
		}
		sim, ok := Cosine(query, c.Embedding())
		if !ok {
			stats.SkippedDimension++
			continue
		}
		if sim < opts.Threshold {
			stats.BelowThreshold++
			continue
		}
		hits = append(hits, hit{c: c, sim: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		if hits[i].c.Index() != hits[j].c.Index() {
			return hits[i].c.Index() < hits[j].c.Index()
		}
		return hits[i].c.ID() < hits[j].c.ID()
	})

	if len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}
	out := make([]result.Result, len(hits))
	for i, h := range hits {
		out[i] = result.FromChunk(h.c, h.sim)
	}
	return out, stats
}
