// Package embcache caches primary-model embeddings in the key-value store.
//
// Users re-ask the same policy questions with different spacing, so keys are
// built from whitespace-normalized text. Entries are scoped by model and
// dimension: switching either never serves a vector the chunk store would skip.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the slice of the key-value client the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config scopes the cache.
type Config struct {
	Model string
	// Dimension rejects cached vectors of another length. Zero accepts any.
	Dimension int
	// TTL of zero keeps entries until evicted.
	TTL time.Duration
	// Lookups counts results under the "result" label ("hit"/"miss"). Optional.
	Lookups *prometheus.CounterVec
}

// CachedEmbedder decorates a primary embedder with a read-through cache.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates a caching decorator around inner.
func New(inner domain.Embedder, s store, cfg Config, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, store: s, cfg: cfg, logger: logger}
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit reports zero tokens. Fallback vectors are never cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec, Model: c.cfg.Model}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if c.cacheable(res) {
		if err := c.store.SetWithTTL(ctx, key, encode(res.Embedding), c.cfg.TTL); err != nil {
			c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// HealthCheck reports the inner embedder's health; the cache itself is optional.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) cacheable(res domain.EmbeddingResult) bool {
	if res.Fallback || len(res.Embedding) == 0 {
		return false
	}
	return c.cfg.Dimension == 0 || len(res.Embedding) == c.cfg.Dimension
}

func (c *CachedEmbedder) count(result string) {
	if c.cfg.Lookups != nil {
		c.cfg.Lookups.WithLabelValues(result).Inc()
	}
}

// key is prefix + model + ":" + dimension + ":" + sha256(normalized text).
func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(normalize(text)))
	return cacheKeyPrefix + c.cfg.Model + ":" + strconv.Itoa(c.cfg.Dimension) + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float64, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Failed to read cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decode(data)
	if err != nil {
		c.logger.Warn("Discarding unreadable cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if c.cfg.Dimension > 0 && len(vec) != c.cfg.Dimension {
		return nil, false
	}
	return vec, true
}

// normalize trims and collapses runs of whitespace to one space.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// encode writes little-endian float64s.
func encode(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decode(data []byte) ([]float64, error) {
	if len(data) == 0 || len(data)%8 != 0 {
		return nil, fmt.Errorf("cached embedding has %d bytes, want a positive multiple of 8", len(data))
	}
	vec := make([]float64, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}
