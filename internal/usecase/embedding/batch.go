package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/batch"
)

// Worker pool bounds for EmbedBatch.
const (
	DefaultConcurrency = 5
	MaxConcurrency     = 32
)

// EmbedBatch embeds texts with at most concurrency in-flight calls.
// Results are in input order; one failing item never cancels the others.
// Every successful item has the same dimension.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, concurrency int) []batch.Result {
	results := make([]batch.Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	workers := clampConcurrency(concurrency)
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.embedOne(ctx, i, texts[i])
			}
		}()
	}

feed:
	for i := range texts {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(texts); j++ {
				results[j] = batch.NewError(j, fmt.Errorf("embed item %d: %w", j, ctx.Err()))
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	s := batch.Summarize(results)
	p.logger.Debug("Batch embedding completed",
		zap.Int("batch_size", len(texts)),
		zap.Int("workers", workers),
		zap.Int("ok", s.OK),
		zap.Int("failed", s.Failed),
		zap.Int("fallback", s.Fallback),
	)

	return results
}

func (p *Provider) embedOne(ctx context.Context, i int, text string) batch.Result {
	res, err := p.Embed(ctx, text)
	if err != nil {
		return batch.NewError(i, fmt.Errorf("embed item %d: %w", i, err))
	}
	if res.Dimension() != p.cfg.Dimension {
		return batch.NewError(i, fmt.Errorf("embed item %d: %w", i, domain.ErrDimensionMismatch))
	}
	return batch.NewOK(i, res)
}

func clampConcurrency(n int) int {
	switch {
	case n <= 0:
		return DefaultConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	default:
		return n
	}
}
