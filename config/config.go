package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetcher   FetcherConfig
	Search    SearchConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Archive   ArchiveConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance used for JS rendering.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all browser requests.
	DefaultProxy string

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// FetcherConfig controls single-URL fetching behavior.
type FetcherConfig struct {
	// MaxRetries is the maximum number of retries per fetch.
	MaxRetries int // default: 3

	// InitialRetryDelay is the first retry delay; it doubles each retry.
	InitialRetryDelay time.Duration // default: 3s

	// RequestTimeout is the per-attempt deadline.
	RequestTimeout time.Duration // default: 15s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// EngineMemoryTTL is how long the per-domain engine preference lives.
	EngineMemoryTTL time.Duration // default: 24h
}

// SearchConfig controls the Google Programmable Search client.
type SearchConfig struct {
	// APIKey is the Google API key. Required for search operations.
	APIKey string

	// CX is the Programmable Search Engine identifier. Required.
	CX string

	// MaxRetries is the maximum number of retries per query.
	MaxRetries int // default: 3

	// RetryDelay is the first retry delay; it doubles each retry.
	RetryDelay time.Duration // default: 60s
}

// LLMConfig controls the query-generation LLM client.
type LLMConfig struct {
	// APIKey authenticates against the OpenAI-compatible API.
	APIKey string

	// BaseURL is the API root. default: "https://api.openai.com/v1"
	BaseURL string

	// Model is the chat model used for query generation.
	Model string // default: "gpt-4o-mini"

	// Temperature for query generation. default: 0.5
	Temperature float64
}

// PipelineConfig controls the multi-URL research pipeline.
type PipelineConfig struct {
	// MaxConcurrent bounds the number of in-flight fetches.
	MaxConcurrent int // default: 5

	// MaxURLs caps how many search hits a research run fetches.
	MaxURLs int // default: 20

	// DomainRPS is the sustained request rate per target domain.
	DomainRPS float64 // default: 1

	// DomainBurst is the per-domain burst size.
	DomainBurst int // default: 2

	// DedupeThreshold is the simhash Hamming distance at or below which
	// two pages are considered duplicates. Negative disables dedup.
	DedupeThreshold int // default: 3
}

// ArchiveConfig controls on-disk persistence of fetched pages.
type ArchiveConfig struct {
	// HTMLDir is where raw HTML and metadata sidecars are written.
	HTMLDir string // default: "./output/html"

	// MarkdownDir is where processed Markdown files are written.
	MarkdownDir string // default: "./output/markdown"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RESEARCHGPT_HOST", "0.0.0.0"),
			Port: envIntOr("RESEARCHGPT_PORT", 8080),
			Mode: envOr("RESEARCHGPT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("RESEARCHGPT_HEADLESS", true),
			MaxPages:     envIntOr("RESEARCHGPT_MAX_PAGES", 5),
			NoSandbox:    envBoolOr("RESEARCHGPT_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("RESEARCHGPT_BROWSER_BIN"),
			DefaultProxy: os.Getenv("RESEARCHGPT_PROXY"),
			BlockedResourceTypes: envSliceOr("RESEARCHGPT_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Fetcher: FetcherConfig{
			MaxRetries:        envIntOr("RESEARCHGPT_FETCH_MAX_RETRIES", 3),
			InitialRetryDelay: envDurationOr("RESEARCHGPT_FETCH_RETRY_DELAY", 3*time.Second),
			RequestTimeout:    envDurationOr("RESEARCHGPT_FETCH_TIMEOUT", 15*time.Second),
			MaxTimeout:        envDurationOr("RESEARCHGPT_MAX_TIMEOUT", 120*time.Second),
			EngineMemoryTTL:   envDurationOr("RESEARCHGPT_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		Search: SearchConfig{
			APIKey:     os.Getenv("GOOGLE_API_KEY"),
			CX:         os.Getenv("GOOGLE_CX"),
			MaxRetries: envIntOr("RESEARCHGPT_SEARCH_MAX_RETRIES", 3),
			RetryDelay: envDurationOr("RESEARCHGPT_SEARCH_RETRY_DELAY", 60*time.Second),
		},
		LLM: LLMConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     envOr("RESEARCHGPT_LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:       envOr("RESEARCHGPT_LLM_MODEL", "gpt-4o-mini"),
			Temperature: envFloatOr("RESEARCHGPT_LLM_TEMPERATURE", 0.5),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:   envIntOr("RESEARCHGPT_MAX_CONCURRENT", 5),
			MaxURLs:         envIntOr("RESEARCHGPT_MAX_URLS", 20),
			DomainRPS:       envFloatOr("RESEARCHGPT_DOMAIN_RPS", 1.0),
			DomainBurst:     envIntOr("RESEARCHGPT_DOMAIN_BURST", 2),
			DedupeThreshold: envIntOr("RESEARCHGPT_DEDUPE_THRESHOLD", 3),
		},
		Archive: ArchiveConfig{
			HTMLDir:     envOr("RESEARCHGPT_HTML_DIR", "./output/html"),
			MarkdownDir: envOr("RESEARCHGPT_MARKDOWN_DIR", "./output/markdown"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RESEARCHGPT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("RESEARCHGPT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RESEARCHGPT_RATE_RPS", 5.0),
			Burst:             envIntOr("RESEARCHGPT_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RESEARCHGPT_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("RESEARCHGPT_LOG_LEVEL", "info"),
			Format: envOr("RESEARCHGPT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
