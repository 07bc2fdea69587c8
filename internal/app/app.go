// Package app wires configuration into a running assistant. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/config"
	dbRedis "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db/redis"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/metrics"
	chunkpg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/repository/chunkstore/postgres"
	chunkredis "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/repository/chunkstore/redis"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/repository/embcache"
	anthropicTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/anthropic"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/embedserver"
	geminiTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/gemini"
	ollamaTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/ollama"
	openaiTransport "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/transport/openai"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/chunking"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	embeddinguc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/embedding"
	enrichuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/enrich"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/generation"
	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/rag"
	searchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/search"
)

// embeddingCacheTTL bounds how long a cached vector outlives a model change.
const embeddingCacheTTL = 30 * 24 * time.Hour

// kvStore backs the embedding cache.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// App holds the wired services.
type App struct {
	Store     rag.ChunkStore
	RAG       *rag.Service
	Documents *documentuc.Service
	Reembed   *batchuc.Service
	Health    *healthuc.Service

	closers []func()
}

// Option overrides parts of the configuration-driven wiring.
type Option func(*options)

type options struct {
	primary  domain.Embedder
	backends []generation.Slot
}

// WithPrimaryEmbedder replaces the configured embedding transport.
func WithPrimaryEmbedder(e domain.Embedder) Option {
	return func(o *options) { o.primary = e }
}

// WithBackends replaces the configured generation chain. Order is priority order.
func WithBackends(bs ...generation.Slot) Option {
	return func(o *options) { o.backends = bs }
}

// New connects to the chunk store and assembles every service.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{}

	kv, err := a.openStore(ctx, cfg.Database, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	primary := o.primary
	if primary == nil {
		primary = newPrimaryEmbedder(cfg.Embedding, logger)
	}
	docEmbedder := buildEmbedder(primary, cfg.Embedding, cfg.Embedding.DocumentInstruction, kv, logger)
	queryEmbedder := buildEmbedder(primary, cfg.Embedding, cfg.Embedding.QueryInstruction, kv, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", kv != nil),
	)

	var backends []configuredBackend
	if o.backends != nil {
		for _, b := range o.backends {
			backends = append(backends, configuredBackend{backend: b.Backend, timeout: b.Timeout})
		}
	} else {
		backends = buildBackends(ctx, cfg.Generation.Backends, logger)
	}
	slots := make([]generation.Slot, len(backends))
	checkers := make([]healthuc.BackendChecker, 0, len(backends))
	for i, b := range backends {
		slots[i] = generation.Slot{Backend: b.backend, Timeout: b.timeout}
		if hc, ok := b.backend.(healthuc.BackendChecker); ok {
			checkers = append(checkers, hc)
		}
	}

	searchSvc := searchuc.New(a.Store, queryEmbedder, searchuc.Config{
		TopK:              cfg.Search.TopK,
		Threshold:         cfg.Search.Threshold,
		FallbackThreshold: cfg.Search.FallbackThreshold,
		CandidateLimit:    cfg.Search.CandidateLimit,
		AllowMixedModels:  cfg.Search.AllowMixedModels,
	}, logger)
	enrichSvc := enrichuc.New(a.Store, seconds(cfg.Search.LookupTimeoutSec), logger)
	orchestrator := generation.New(slots, generation.Config{
		SystemPrompt: cfg.Generation.SystemPrompt,
		ExcerptRunes: cfg.Generation.ExcerptRunes,
	}, logger)

	a.RAG = rag.New(searchSvc, enrichSvc, orchestrator, seconds(cfg.Search.RetrievalTimeoutSec), logger)
	a.Documents = documentuc.New(a.Store, docEmbedder, chunking.Options{
		Size:      cfg.Chunking.Size,
		Overlap:   cfg.Chunking.Overlap,
		MinLength: cfg.Chunking.MinLength,
		MaxChunks: cfg.Chunking.MaxChunks,
	}, cfg.Embedding.Workers, logger)
	a.Reembed = batchuc.New(a.Store, docEmbedder, cfg.Embedding.Workers, logger)
	a.Health = healthuc.New(a.Store, docEmbedder, checkers...)

	logger.Info("Generation chain ready", zap.Strings("backends", orchestrator.Backends()))
	return a, nil
}

// Close releases store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openStore sets a.Store and returns the key-value store for the embedding cache, if any.
func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (kvStore, error) {
	readiness := seconds(cfg.ReadinessTimeout)

	switch cfg.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		a.Store = chunkredis.New(store)
		logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
		return store, nil

	case "postgres":
		if cfg.AutoMigrate {
			if err := chunkpg.Migrate(cfg.URL, logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pctx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		pool, err := chunkpg.NewPool(pctx, chunkpg.Config{URL: cfg.URL, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("postgres not ready: %w", err)
		}
		store := chunkpg.New(pool)
		a.closers = append(a.closers, store.Close)
		a.Store = store
		logger.Info("Connected to database", zap.String("driver", cfg.Driver))
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newPrimaryEmbedder builds the transport for the configured embedding backend.
func newPrimaryEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	switch cfg.Provider {
	case "ollama":
		return ollamaTransport.NewEmbedder(ollamaTransport.EmbedderConfig{BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "openai":
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		return embedserver.New(embedserver.Config{BaseURL: cfg.BaseURL, Model: cfg.Model})
	}
}

// buildEmbedder assembles the decorator chain:
// primary -> Instrumented -> Cached -> Instruction -> Provider (hash fallback).
func buildEmbedder(
	primary domain.Embedder,
	cfg config.EmbeddingConfig,
	instruction string,
	kv kvStore,
	logger *zap.Logger,
) *embeddinguc.Provider {
	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(primary, cfg.Provider, cfg.Model, logger)

	if cfg.Cache && kv != nil {
		embedder = embcache.New(embedder, kv, embcache.Config{
			Model:     cfg.Model,
			Dimension: cfg.Dimensions,
			TTL:       embeddingCacheTTL,
			Lookups:   metrics.EmbeddingCacheTotal,
		}, logger)
	}

	// Instruction wraps the cache so the cache key includes it.
	if instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embeddinguc.NewProvider(embedder, embeddinguc.ProviderConfig{
		Dimension:     cfg.Dimensions,
		Timeout:       seconds(cfg.TimeoutSec),
		MaxInputRunes: cfg.MaxInputRunes,
	}, logger)
}

type configuredBackend struct {
	backend generation.Backend
	timeout time.Duration
}

// buildBackends creates the enabled generation backends in priority order.
// A backend that cannot be constructed is logged and left out of the chain.
func buildBackends(ctx context.Context, cfgs []config.BackendConfig, logger *zap.Logger) []configuredBackend {
	out := make([]configuredBackend, 0, len(cfgs))
	for _, bc := range cfgs {
		if bc.Disabled {
			logger.Info("Generation backend disabled", zap.String("backend", bc.Name))
			continue
		}
		b, err := newBackend(ctx, bc)
		if err != nil {
			logger.Warn("Skipping generation backend", zap.String("backend", bc.Name), zap.Error(err))
			continue
		}
		out = append(out, configuredBackend{backend: b, timeout: seconds(bc.TimeoutSec)})
	}
	return out
}

func newBackend(ctx context.Context, bc config.BackendConfig) (generation.Backend, error) {
	switch bc.Provider {
	case "ollama":
		return ollamaTransport.NewGenerator(ollamaTransport.GeneratorConfig{
			Name:        bc.Name,
			BaseURL:     bc.BaseURL,
			Model:       bc.Model,
			Temperature: bc.Temperature,
			MaxTokens:   bc.MaxTokens,
		}), nil
	case "openai":
		return openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			Name:        bc.Name,
			APIKey:      bc.APIKey,
			BaseURL:     bc.BaseURL,
			Model:       bc.Model,
			Temperature: bc.Temperature,
			MaxTokens:   bc.MaxTokens,
		}), nil
	case "anthropic":
		if bc.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return anthropicTransport.NewGenerator(anthropicTransport.Config{
			Name:        bc.Name,
			APIKey:      bc.APIKey,
			BaseURL:     bc.BaseURL,
			Model:       bc.Model,
			Temperature: bc.Temperature,
			MaxTokens:   bc.MaxTokens,
		}), nil
	case "gemini":
		g, err := geminiTransport.NewGenerator(ctx, geminiTransport.Config{
			Name:        bc.Name,
			APIKey:      bc.APIKey,
			BaseURL:     bc.BaseURL,
			Model:       bc.Model,
			Temperature: bc.Temperature,
			MaxTokens:   bc.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini backend: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported generation provider %q", bc.Provider)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
