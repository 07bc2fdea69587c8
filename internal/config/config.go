package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
)

// Config holds the FAQ assistant configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Auth       AuthConfig       `yaml:"auth"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API keys guarding the admin routes (ingest, re-embed).
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds chunk store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, postgres (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"` // postgres connection string
	MaxConns         int32    `yaml:"max_conns"`
	AutoMigrate      bool     `yaml:"auto_migrate"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the primary embedding backend settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // embedserver, ollama, openai
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	Workers             int    `yaml:"workers"`
	MaxInputRunes       int    `yaml:"max_input_runes"`
	Cache               bool   `yaml:"cache"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// GenerationConfig holds the prioritized backend chain.
type GenerationConfig struct {
	Backends     []BackendConfig `yaml:"backends"`
	SystemPrompt string          `yaml:"system_prompt"`
	ExcerptRunes int             `yaml:"excerpt_runes"`
}

// BackendConfig holds one generation backend. Order in the list is priority order.
type BackendConfig struct {
	Name        string  `yaml:"name"`
	Provider    string  `yaml:"provider"` // ollama, openai, gemini, anthropic
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	Disabled    bool    `yaml:"disabled"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK                int     `yaml:"top_k"`
	Threshold           float64 `yaml:"threshold"`
	FallbackThreshold   float64 `yaml:"fallback_threshold"` // used when the query vector is a hash fallback
	CandidateLimit      int     `yaml:"candidate_limit"`
	AllowMixedModels    bool    `yaml:"allow_mixed_models"`
	LookupTimeoutSec    int     `yaml:"lookup_timeout_sec"`
	RetrievalTimeoutSec int     `yaml:"retrieval_timeout_sec"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	Size      int `yaml:"size"`
	Overlap   int `yaml:"overlap"`
	MinLength int `yaml:"min_length"`
	MaxChunks int `yaml:"max_chunks"`
}

// TelemetryConfig holds error reporting settings.
type TelemetryConfig struct {
	SentryDSN        string  `yaml:"sentry_dsn"`
	Environment      string  `yaml:"environment"`
	TracesSampleRate float64 `yaml:"traces_sample_rate"`
}

var supportedBackendProviders = map[string]bool{
	"ollama": true, "openai": true, "gemini": true, "anthropic": true,
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, is loaded first.
func Load(env string) (Config, error) {
	_ = godotenv.Load() // optional; real environment wins over .env

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env vars in data, unmarshals it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Default returns the values of settings where zero is meaningful: an explicit
// `overlap: 0` or `threshold: 0` must survive, so these are preset before
// unmarshalling instead of being filled in by ApplyDefaults.
func Default() Config {
	return Config{
		Search:   SearchConfig{Threshold: 0.1, FallbackThreshold: 0.01},
		Chunking: ChunkingConfig{Overlap: 200},
	}
}

// ApplyDefaults fills empty fields with default values. Zero overlap and
// thresholds are kept; start from Default to get their defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()
	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
	if c.Search.CandidateLimit <= 0 {
		c.Search.CandidateLimit = 1000
	}
	if c.Search.LookupTimeoutSec <= 0 {
		c.Search.LookupTimeoutSec = 5
	}
	if c.Search.RetrievalTimeoutSec <= 0 {
		c.Search.RetrievalTimeoutSec = 15
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 1000
	}
	if c.Chunking.MinLength <= 0 {
		c.Chunking.MinLength = 50
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = "development"
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "embedserver"
	}
	if e.Model == "" {
		e.Model = "bge-m3"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 1024
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 10
	}
	if e.Workers <= 0 {
		e.Workers = 5
	}
	if e.MaxInputRunes <= 0 {
		e.MaxInputRunes = 4000
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.ExcerptRunes <= 0 {
		g.ExcerptRunes = 300
	}
	for i := range g.Backends {
		b := &g.Backends[i]
		if b.Name == "" {
			b.Name = b.Provider
		}
		if b.TimeoutSec <= 0 {
			b.TimeoutSec = 30
			if b.Provider != "ollama" {
				b.TimeoutSec = 20
			}
		}
		if b.MaxTokens <= 0 {
			b.MaxTokens = 1500
		}
		if b.Temperature <= 0 {
			b.Temperature = 0.2
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"postgres\", got %q", c.Database.Driver)
	}
	switch c.Embedding.Provider {
	case "embedserver", "ollama", "openai":
	default:
		return fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider)
	}
	if c.Embedding.Workers > 32 {
		return fmt.Errorf("embedding.workers must be at most 32, got %d", c.Embedding.Workers)
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	names := make(map[string]bool, len(c.Generation.Backends))
	for i, b := range c.Generation.Backends {
		if !supportedBackendProviders[b.Provider] {
			return fmt.Errorf("generation.backends[%d].provider %q is not supported", i, b.Provider)
		}
		if names[b.Name] {
			return fmt.Errorf("generation.backends[%d].name %q is duplicated", i, b.Name)
		}
		names[b.Name] = true
	}
	return nil
}

// Validate checks the chunk window. Chunks longer than chunk.MaxContentRunes
// cannot be stored, so a larger size is rejected up front.
func (c ChunkingConfig) Validate() error {
	if c.Size <= 0 || c.Size > chunk.MaxContentRunes {
		return fmt.Errorf("chunking.size must be between 1 and %d, got %d", chunk.MaxContentRunes, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("chunking.overlap (%d) must be in [0, chunking.size (%d))", c.Overlap, c.Size)
	}
	return nil
}

// Validate checks that both thresholds are within [0, 1].
func (c SearchConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 || c.FallbackThreshold < 0 || c.FallbackThreshold > 1 {
		return fmt.Errorf("search thresholds must be within [0, 1], got %v and %v", c.Threshold, c.FallbackThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
