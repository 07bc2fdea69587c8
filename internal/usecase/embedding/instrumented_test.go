package embedding

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// mockEmbedder returns a fixed result, or calls fn when set.
type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	fn     func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls  atomic.Int32
	health error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.fn != nil {
		return m.fn(ctx, text)
	}
	return m.result, m.err
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error { return m.health }

func vec(dim int, v float64) []float64 {
	out := make([]float64, dim)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{0.1, 0.2, 0.3}}}
	p := NewInstrumentedEmbedder(inner, "embedserver", "bge-m3", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dimension() != 3 {
		t.Fatalf("expected 3 dimensions, got %d", result.Dimension())
	}
	if result.Model != "bge-m3" {
		t.Errorf("expected model to default to bge-m3, got %q", result.Model)
	}
}

func TestInstrumentedEmbedder_KeepsReportedModel(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float64{1}, Model: "bge-m3-v2"}}
	p := NewInstrumentedEmbedder(inner, "embedserver", "bge-m3", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Model != "bge-m3-v2" {
		t.Errorf("expected backend model, got %q", result.Model)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	innerErr := errors.New("provider down")
	p := NewInstrumentedEmbedder(&mockEmbedder{err: innerErr}, "test", "m", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	p := NewInstrumentedEmbedder(&mockEmbedder{health: errors.New("down")}, "test", "m", zap.NewNop())
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
}

// slowEmbedder blocks until ctx is done.
func slowEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}}
}

// concurrencyProbe records the peak number of concurrent Embed calls.
type concurrencyProbe struct {
	mu      sync.Mutex
	current int
	peak    int
	dim     int
}

func (c *concurrencyProbe) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	c.mu.Lock()
	c.current++
	if c.current > c.peak {
		c.peak = c.current
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.current--
	c.mu.Unlock()
	return domain.EmbeddingResult{Embedding: vec(c.dim, 0.5), Model: "bge-m3"}, nil
}
