package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lichtblick/internal/cache"
	"lichtblick/internal/chat"
	"lichtblick/internal/config"
	"lichtblick/internal/llm"
	"lichtblick/internal/logger"
	"lichtblick/internal/prompts"
	"lichtblick/internal/queue"
	"lichtblick/internal/session"
	"lichtblick/internal/store"
)

// Deps bundles the runtime dependencies of the gateway.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Sessions *session.Store
	Chat     *chat.Service
	Cache    cache.Cache
	Queue    queue.Queue
}

// ArchiverDeps bundles the runtime dependencies of the archiver.
type ArchiverDeps struct {
	Config config.Config
	Log    *slog.Logger
	Store  store.Store
	Queue  queue.Queue
}

// Build loads env, config, and the gateway components.
func Build() (Deps, error) {
	cfg, log := load()

	factory, err := buildFactory(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	svc, err := chat.NewService(chat.Config{
		Factory:    factory,
		Catalog:    prompts.Default(),
		Decider:    cfg.Decider,
		Model:      cfg.LLMModel,
		Cache:      c,
		CacheTTL:   time.Duration(cfg.CacheTTL) * time.Second,
		Queue:      q,
		ChunkWords: cfg.VocabChunkWords,
		Log:        log,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize chat service: %w", err)
	}

	return Deps{
		Config:   cfg,
		Log:      log,
		Sessions: session.NewStore(time.Duration(cfg.SessionTTLMinutes)*time.Minute, cfg.MaxSessions),
		Chat:     svc,
		Cache:    c,
		Queue:    q,
	}, nil
}

// BuildArchiver loads env, config, and the archiver components.
func BuildArchiver() (ArchiverDeps, error) {
	cfg, log := load()

	st, err := buildStore(cfg, log)
	if err != nil {
		return ArchiverDeps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		_ = st.Close()
		return ArchiverDeps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return ArchiverDeps{Config: cfg, Log: log, Store: st, Queue: q}, nil
}

func load() (config.Config, *slog.Logger) {
	// A missing .env is normal in containers; variables come from the environment.
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("failed to load .env", "err", envErr)
	}
	return cfg, log
}

func buildFactory(cfg config.Config, log *slog.Logger) (llm.Factory, error) {
	switch cfg.LLMProvider {
	case "openai":
		var opts []option.RequestOption
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model := openai.ChatModel(cfg.LLMModel)
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel, "decider", cfg.Decider)
		return func(apiKey string) (llm.Client, error) {
			client, err := llm.NewOpenAIClient(apiKey, model, opts...)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	case "stub":
		log.Warn("using stub LLM client; replies echo their input", "decider", cfg.Decider)
		return func(string) (llm.Client, error) {
			return llm.NewStubClient(), nil
		}, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, stub)", cfg.LLMProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "none", "":
		return cache.NewNoOpCache(), nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			// The cache only saves completion calls; run without it.
			log.Warn("redis unavailable, reply cache disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis reply cache", "addr", cfg.RedisAddr, "ttl_seconds", cfg.CacheTTL)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "none", "":
		log.Info("queue disabled; turn events are dropped")
		return queue.NewNoOp(), nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := queue.ConnectNATS(log, cfg.QueueURL, "lichtblick")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=%s", cfg.StoreProvider)
	}
	switch cfg.StoreProvider {
	case "postgres":
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "sqlite":
		db, err := store.NewSQLite(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("using SQLite store", "path", cfg.DBURL)
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, sqlite)", cfg.StoreProvider)
	}
}
