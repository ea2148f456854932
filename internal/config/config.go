package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// JinaConfig holds Jina AI reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (last scrape fallback).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures URL resolution.
type SearchConfig struct {
	Providers       []string `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FallbackBaseURL string   `yaml:"fallback_base_url" mapstructure:"fallback_base_url"`
	DuckDuckGoURL   string   `yaml:"duckduckgo_url" mapstructure:"duckduckgo_url"`
}

// FetchConfig configures page fetching and the page cache.
type FetchConfig struct {
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent     string   `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	CacheTTLHours int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	ExcludePaths  []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// ExtractConfig configures chunking and model extraction.
type ExtractConfig struct {
	ChunkSize        int `yaml:"chunk_size" mapstructure:"chunk_size"`
	PromptChunkLimit int `yaml:"prompt_chunk_limit" mapstructure:"prompt_chunk_limit"`
	ChunkConcurrency int `yaml:"chunk_concurrency" mapstructure:"chunk_concurrency"`
	MaxSearchResults int `yaml:"max_search_results" mapstructure:"max_search_results"`
}

// StoreConfig configures the page cache and run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Search providers.
const (
	ProviderJina       = "jina"
	ProviderDuckDuckGo = "duckduckgo"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DATASET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("anthropic.requests_per_second", 0)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("search.providers", []string{ProviderJina, ProviderDuckDuckGo})
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.fallback_base_url", "https://www.google.com/search?q=")
	v.SetDefault("search.duckduckgo_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.cache_ttl_hours", 24)
	v.SetDefault("fetch.exclude_paths", []string{})
	v.SetDefault("extract.chunk_size", 4000)
	v.SetDefault("extract.prompt_chunk_limit", 3000)
	v.SetDefault("extract.chunk_concurrency", 1)
	v.SetDefault("extract.max_search_results", 20)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dataset.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: serve,
// extract, preprocess, runs, cache.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	checkStore := func() {
		switch strings.ToLower(c.Store.Driver) {
		case "sqlite":
			require(c.Store.DatabaseURL != "", "store.database_url is required for sqlite")
		case "postgres", "pgx":
			require(c.Store.DatabaseURL != "", "store.database_url is required for postgres")
			require(c.Store.MaxConns >= c.Store.MinConns, "store.max_conns must be >= store.min_conns")
		case "", "none":
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
		}
	}

	checkExtraction := func() {
		require(c.Extract.ChunkSize > 0, "extract.chunk_size must be > 0")
		require(c.Extract.PromptChunkLimit > 0, "extract.prompt_chunk_limit must be > 0")
		require(c.Extract.ChunkConcurrency >= 1 && c.Extract.ChunkConcurrency <= 16,
			"extract.chunk_concurrency must be between 1 and 16")
		require(c.Extract.MaxSearchResults >= 1 && c.Extract.MaxSearchResults <= 50,
			"extract.max_search_results must be between 1 and 50")
		require(c.Search.TimeoutSecs > 0, "search.timeout_secs must be > 0")
		require(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be > 0")
		require(c.Anthropic.RequestsPerSecond >= 0, "anthropic.requests_per_second must be >= 0")
		for _, p := range c.Search.Providers {
			switch strings.ToLower(p) {
			case ProviderJina, ProviderDuckDuckGo:
			default:
				errs = append(errs, fmt.Sprintf("search.providers: unknown provider %q", p))
			}
		}
		checkStore()
	}

	switch mode {
	case "serve":
		require(c.Server.Port > 0, "server.port must be > 0")
		checkExtraction()
	case "extract":
		require(c.Anthropic.Key != "", "anthropic.key is required")
		checkExtraction()
	case "preprocess":
	case "runs", "cache":
		d := strings.ToLower(c.Store.Driver)
		require(d != "" && d != "none", "store.driver must be sqlite or postgres")
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ModelTimeout is the bound on one model call.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Anthropic.TimeoutSecs) * time.Second
}

// SearchTimeout is the bound on one search call.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSecs) * time.Second
}

// FetchTimeout is the bound on one page fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSecs) * time.Second
}

// CacheTTL is how long fetched page text stays cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Fetch.CacheTTLHours) * time.Hour
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
