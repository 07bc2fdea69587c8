package faq

import "time"

// Answer is the assistant's reply to one question.
type Answer struct {
	Answer         string
	Sources        []Source
	Confidence     float64
	Model          string
	LLMGenerated   bool
	ProcessingTime time.Duration
}

// Source is one retrieved excerpt with the metadata of its document.
type Source struct {
	DocumentID string
	ChunkID    string
	Title      string
	URL        string
	SourceType string
	Excerpt    string
	Similarity float64
}

// IndexRequest is one plain text document to ingest.
// An empty ID gets a generated UUID; a non-empty URL marks a url source.
type IndexRequest struct {
	ID    string
	Title string
	URL   string
	Text  string
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	DocumentID     string
	Status         string
	Chunks         int
	FallbackChunks int
	FailedChunks   int
}

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	ID         string
	Title      string
	SourceType string
	URL        string
	Status     string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReembedReport summarizes one pass over fallback-embedded chunks.
type ReembedReport struct {
	Scanned       int
	Upgraded      int
	StillFallback int
	Failed        int
	Stale         int // chunks re-indexed during the pass, left untouched
}
