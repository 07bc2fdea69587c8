package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects primary-model token usage for a single HTTP request.
// The handler puts a pointer into the context; the embedding provider writes to it,
// possibly from several workers at once; the handler reads it for response headers.
type EmbeddingUsage struct {
	mu        sync.Mutex
	tokens    int
	used      bool
	fallbacks int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records tokens consumed by the primary model. Zero still marks the request as used.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += n
	u.used = true
	u.mu.Unlock()
}

// AddFallback records one vector served by the hash fallback.
func (u *EmbeddingUsage) AddFallback() {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.fallbacks++
	u.used = true
	u.mu.Unlock()
}

// Snapshot returns the totals so far.
func (u *EmbeddingUsage) Snapshot() (tokens, fallbacks int, used bool) {
	if u == nil {
		return 0, 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens, u.fallbacks, u.used
}
