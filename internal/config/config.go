package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/specgest/internal/chunker"
)

// Config is the immutable process configuration, resolved once at startup
// and passed to components at construction. Components never read the
// environment themselves.
type Config struct {
	Port string

	// Layout/OCR service
	LayoutURL     string
	LayoutAPIKey  string
	OCRDefault    bool
	OCRLanguages  []string
	EnhanceLayout bool

	// Auth
	SpecgestAPIKey string

	// Inference
	InferProvider string // "openai" or "gemini"
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	InferTimeout  time.Duration

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentInfer int

	// Upload limits
	MaxUploadBytes int64

	// Chunking
	ChunkMaxChars int

	// Merge / compare
	MergeStrategy    string
	CompareTolerance float64
	SpecDBPath       string

	// Run state
	RunTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		LayoutURL:     envOr("LAYOUT_URL", "http://localhost:8080"),
		LayoutAPIKey:  os.Getenv("LAYOUT_API_KEY"),
		OCRDefault:    envBool("OCR_DEFAULT", false),
		OCRLanguages:  envList("OCR_LANGUAGES", []string{"ch_sim", "en"}),
		EnhanceLayout: envBool("ENHANCE_LAYOUT", true),

		SpecgestAPIKey: os.Getenv("SPECGEST_API_KEY"),

		InferProvider: envOr("INFER_PROVIDER", "openai"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   envOr("GEMINI_MODEL", "gemini-1.5-pro"),
		InferTimeout:  envDuration("INFER_TIMEOUT", 120*time.Second),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentInfer: envInt("MAX_CONCURRENT_INFER", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ChunkMaxChars: envInt("CHUNK_MAX_CHARS", chunker.DefaultMaxChars),

		MergeStrategy:    envOr("MERGE_STRATEGY", "first_wins"),
		CompareTolerance: envFloat("COMPARE_TOLERANCE", 1e-9),
		SpecDBPath:       os.Getenv("SPEC_DB_PATH"),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentInfer <= 0 {
		cfg.MaxConcurrentInfer = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = chunker.DefaultMaxChars
	}
	if cfg.InferTimeout <= 0 {
		cfg.InferTimeout = 120 * time.Second
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.SpecgestAPIKey == "" {
		return fmt.Errorf("SPECGEST_API_KEY is required")
	}
	switch c.InferProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown INFER_PROVIDER %q", c.InferProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
