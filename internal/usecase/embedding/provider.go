package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
)

// Fallback reasons reported in metrics and logs.
const (
	reasonTimeout   = "timeout"
	reasonError     = "error"
	reasonDimension = "dimension"
	reasonEmpty     = "empty_input"
)

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	Dimension     int
	Timeout       time.Duration
	MaxInputRunes int
}

// Provider embeds text with a primary backend and falls back to HashEmbedder
// whenever the primary fails, times out, or returns a vector of the wrong length.
type Provider struct {
	primary  domain.Embedder
	fallback *HashEmbedder
	cfg      ProviderConfig
	logger   *zap.Logger
}

// NewProvider creates a Provider. primary may be nil, in which case every vector is a fallback.
func NewProvider(primary domain.Embedder, cfg ProviderConfig, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		primary:  primary,
		fallback: NewHashEmbedder(cfg.Dimension),
		cfg:      cfg,
		logger:   logger,
	}
}

// Dimension returns the configured vector length.
func (p *Provider) Dimension() int { return p.cfg.Dimension }

// Embed returns a primary vector, or a fallback vector tagged domain.FallbackModel.
// The only error is cancellation of ctx by the caller.
func (p *Provider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	text = Normalize(text, p.cfg.MaxInputRunes)
	if text == "" {
		return p.degrade(ctx, text, reasonEmpty, nil)
	}
	if p.primary == nil {
		return p.degrade(ctx, text, reasonError, domain.ErrEmbeddingBackendUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res, err := p.primary.Embed(callCtx, text)
	if err != nil {
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", ctx.Err())
		}
		reason := reasonError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = reasonTimeout
		}
		return p.degrade(ctx, text, reason, err)
	}
	if res.Dimension() != p.cfg.Dimension {
		err := fmt.Errorf("got %d, want %d: %w", res.Dimension(), p.cfg.Dimension, domain.ErrDimensionMismatch)
		return p.degrade(ctx, text, reasonDimension, err)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res, nil
}

func (p *Provider) degrade(
	ctx context.Context, text, reason string, cause error,
) (domain.EmbeddingResult, error) {
	metrics.EmbeddingFallbackTotal.WithLabelValues(reason).Inc()
	domain.UsageFromContext(ctx).AddFallback()
	if cause != nil {
		p.logger.Warn("Primary embedding failed, using hash fallback",
			zap.String("reason", reason),
			zap.Int("text_runes", len([]rune(text))),
			zap.Error(cause),
		)
	}
	return p.fallback.Embed(ctx, text)
}

// HealthCheck probes the primary backend when it supports health checks.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.primary == nil {
		return domain.ErrEmbeddingBackendUnavailable
	}
	if hc, ok := p.primary.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
