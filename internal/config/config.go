package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the gateway and archiver services.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits for reading texts sent to the vocabulary endpoint
	MaxUploadSize   int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
	VocabChunkWords int   `env:"VOCAB_CHUNK_WORDS" envDefault:"300"`

	// Sessions
	SessionTTLMinutes int `env:"SESSION_TTL_MINUTES" envDefault:"120"`
	MaxSessions       int `env:"MAX_SESSIONS" envDefault:"4096"`

	// LLM
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (uses OpenAI API) or "stub" (deterministic echo)
	LLMModel      string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	Decider       string `env:"DECIDER" envDefault:"model"` // "model" (tool calling) or "rules"

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`

	// Store (archiver only)
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" or "sqlite"
	DBURL         string `env:"DB_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
