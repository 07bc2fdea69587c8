package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEmbedding(t *testing.T) {
	const provider, model = "test-provider", "bge-m3"

	ObserveEmbedding(provider, model, time.Now(), EmbedSuccess)
	ObserveEmbedding(provider, model, time.Now(), EmbedAPIError)
	ObserveEmbedding(provider, model, time.Now(), EmbedEmptyResponse)

	if got := testutil.ToFloat64(EmbeddingRequestsTotal.WithLabelValues(provider, model, "success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EmbeddingRequestsTotal.WithLabelValues(provider, model, "error")); got != 2 {
		t.Errorf("error = %v, want 2", got)
	}
	if got := testutil.ToFloat64(EmbeddingErrorsTotal.WithLabelValues(provider, model, EmbedEmptyResponse)); got != 1 {
		t.Errorf("empty_response = %v, want 1", got)
	}
}

func TestAddEmbeddingTokens(t *testing.T) {
	const provider, model = "tokens-provider", "text-embedding-3-small"

	AddEmbeddingTokens(provider, model, 0, 0)
	AddEmbeddingTokens(provider, model, 7, 9)

	if got := testutil.ToFloat64(EmbeddingTokensTotal.WithLabelValues(provider, model, "total")); got != 9 {
		t.Errorf("total tokens = %v, want 9", got)
	}
	if got := testutil.ToFloat64(EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt")); got != 7 {
		t.Errorf("prompt tokens = %v, want 7", got)
	}
}
