package faq

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type backendSlot struct {
	backend Backend
	timeout time.Duration
}

type clientConfig struct {
	driver      string // "redis" or "postgres"
	addrs       []string
	password    string
	postgresURL string
	autoMigrate bool

	embedder     Embedder
	embedBaseURL string
	embedModel   string
	dimensions   int
	cache        bool

	backends     []backendSlot
	systemPrompt string

	searchSet   bool
	topK        int
	threshold   float64
	chunkingSet bool
	chunkSize   int
	overlap     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores chunks and documents in Redis.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres stores chunks and documents in PostgreSQL with pgvector.
// With migrate set, the schema is brought up to date on connect.
func WithPostgres(url string, migrate bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.postgresURL = url
		c.autoMigrate = migrate
	})
}

// WithEmbedder sets a custom primary embedding provider.
// Failures still fall back to hash vectors.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingServer points the primary provider at a bge-m3 style embedding server.
func WithEmbeddingServer(baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedBaseURL = baseURL
		c.embedModel = model
	})
}

// WithDimensions sets the vector length of the hash fallback. Defaults to 1024.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithEmbeddingCache caches primary vectors in Redis. Ignored for postgres.
func WithEmbeddingCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = true
	})
}

// WithBackend appends a generation backend to the chain.
// Backends are tried in the order they were added. A zero timeout means 20s.
func WithBackend(b Backend, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.backends = append(c.backends, backendSlot{backend: b, timeout: timeout})
	})
}

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(prompt string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = prompt
	})
}

// WithSearch sets how many chunks are retrieved and the minimum similarity.
// A zero threshold keeps every chunk with positive similarity.
func WithSearch(topK int, threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchSet = true
		c.topK = topK
		c.threshold = threshold
	})
}

// WithChunking sets the chunk window and overlap in characters.
// size must not exceed 4000. A zero overlap is allowed.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkingSet = true
		c.chunkSize = size
		c.overlap = overlap
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
