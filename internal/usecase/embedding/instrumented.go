package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
)

// InstrumentedEmbedder logs each primary embedding call with the request's logger.
// Counters live in the transport packages; this adds the per-request trail.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. model fills EmbeddingResult.Model when the backend leaves it empty.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{inner: inner, provider: provider, model: model, logger: logger}
}

// Embed calls the primary backend. Failures are logged at warn: the provider
// answers them with a hash vector, so they never reach the user.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)

	log := logpkg.Or(ctx, p.logger).With(
		zap.String("provider", p.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("runes", utf8.RuneCountInString(text)),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("Embedding request canceled")
		} else {
			log.Warn("Primary embedding failed", zap.String("model", p.model), zap.Error(err))
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed via %s: %w", p.provider, err)
	}

	if res.Model == "" {
		res.Model = p.model
	}
	log.Debug("Primary embedding completed",
		zap.String("model", res.Model),
		zap.Int("dimensions", res.Dimension()),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck probes the primary backend when it supports it.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health: %w", p.provider, err)
	}
	return nil
}
