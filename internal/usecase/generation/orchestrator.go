// Package generation turns retrieved sources into an answer by walking a
// prioritized chain of language model backends.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/telemetry"
)

// DefaultBackendTimeout applies to slots without an explicit timeout.
const DefaultBackendTimeout = 20 * time.Second

// Slot is one position in the backend chain.
type Slot struct {
	Backend Backend
	Timeout time.Duration
}

// Config holds orchestrator settings.
type Config struct {
	SystemPrompt string
	ExcerptRunes int
}

// Orchestrator tries backends strictly in order and falls back to a
// rule-based template when all of them fail.
type Orchestrator struct {
	slots  []Slot
	cfg    Config
	logger *zap.Logger
}

// New creates an orchestrator. An empty chain always answers from the template.
func New(slots []Slot, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.ExcerptRunes <= 0 {
		cfg.ExcerptRunes = DefaultExcerptRunes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := range slots {
		if slots[i].Timeout <= 0 {
			slots[i].Timeout = DefaultBackendTimeout
		}
	}
	return &Orchestrator{slots: slots, cfg: cfg, logger: logger}
}

// Backends returns the backend names in priority order.
func (o *Orchestrator) Backends() []string {
	names := make([]string, len(o.slots))
	for i, s := range o.slots {
		names[i] = s.Backend.Name()
	}
	return names
}

// Generate answers query from sources. It returns an error only when sources
// is empty or ctx is cancelled by the caller; backend failures end in the
// rule-based answer. ProcessingTimeMs is left for the caller to fill.
func (o *Orchestrator) Generate(
	ctx context.Context, query string, sources []answer.EnrichedSource,
) (answer.GenerationResponse, error) {
	if len(sources) == 0 {
		return answer.GenerationResponse{}, domain.ErrNoRelevantResults
	}

	req := Request{
		System: o.cfg.SystemPrompt,
		Prompt: BuildPrompt(query, BuildContext(sources, o.cfg.ExcerptRunes)),
	}

	var errs []error
	for _, slot := range o.slots {
		if err := ctx.Err(); err != nil {
			return answer.GenerationResponse{}, fmt.Errorf("generate: %w", err)
		}

		text, err := o.try(ctx, slot, req)
		if err == nil {
			return answer.GenerationResponse{
				Answer:         text,
				Sources:        sources,
				Confidence:     Confidence(text, sources),
				Model:          slot.Backend.Name(),
				IsLLMGenerated: true,
			}, nil
		}
		if ctx.Err() != nil {
			return answer.GenerationResponse{}, fmt.Errorf("generate: %w", ctx.Err())
		}
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		exhausted := fmt.Errorf("%w: %w", domain.ErrAllBackendsFailed, errors.Join(errs...))
		o.logger.Warn("All generation backends failed, using rule-based answer",
			zap.Strings("backends", o.Backends()),
			zap.Error(exhausted),
		)
		telemetry.CaptureError(ctx, exhausted)
	}

	return answer.GenerationResponse{
		Answer:     RuleBasedAnswer(query, sources),
		Sources:    sources,
		Confidence: RuleBasedConfidence(sources[0].Similarity),
		Model:      answer.ModelRuleBased,
	}, nil
}

// try calls one backend under its own timeout and validates the answer.
func (o *Orchestrator) try(ctx context.Context, slot Slot, req Request) (string, error) {
	name := slot.Backend.Name()
	callCtx, cancel := context.WithTimeout(ctx, slot.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := slot.Backend.Generate(callCtx, req)
	metrics.GenerationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "error"
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		o.recordFailure(name, reason, err)
		return "", domain.NewBackendError(name, err)
	}

	text := strings.TrimSpace(resp.Text)
	if err := ValidateAnswer(text); err != nil {
		o.recordFailure(name, "invalid_answer", err)
		return "", domain.NewBackendError(name, err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(name, "success").Inc()
	o.logger.Info("Answer generated",
		zap.String("backend", name),
		zap.String("model", resp.Model),
		zap.Int("answer_runes", len([]rune(text))),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

func (o *Orchestrator) recordFailure(name, reason string, err error) {
	metrics.GenerationRequestsTotal.WithLabelValues(name, "failure").Inc()
	metrics.GenerationBackendFailuresTotal.WithLabelValues(name, reason).Inc()
	o.logger.Warn("Generation backend failed",
		zap.String("backend", name),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
