package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/askdesk/backend/internal/agent"
	"github.com/askdesk/backend/internal/cache/redis"
	"github.com/askdesk/backend/internal/chunk"
	"github.com/askdesk/backend/internal/corpus"
	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/index"
	"github.com/askdesk/backend/internal/llm"
	"github.com/askdesk/backend/internal/retrieval"
	"github.com/askdesk/backend/internal/storage/sqlite"
	"github.com/askdesk/backend/internal/vector"
	"github.com/askdesk/backend/internal/vector/memory"
	"github.com/askdesk/backend/internal/vector/milvus"
	"github.com/askdesk/backend/pkg/config"
	"github.com/askdesk/backend/pkg/logger"
)

// app wires the full pipeline from configuration. Commands that do not
// persist history pass withHistory=false and get a nil db.
type app struct {
	cfg       *config.Config
	db        *sqlite.Client
	cache     *redis.Client
	llmClient *llm.Client
	loader    *corpus.Loader
	manager   *index.Manager
	indexer   *index.Indexer
	retriever *retrieval.Retriever
	engine    *agent.Engine
}

func newApp(withHistory bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg}

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.Redis.Enabled {
		cache, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = cache
	}

	llmOpts := []llm.Option{
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSec) * time.Second),
	}
	if a.cache != nil {
		llmOpts = append(llmOpts, llm.WithEmbeddingCache(a.cache, time.Duration(cfg.Redis.TTLHours)*time.Hour))
	}

	llmClient, err := llm.NewClient(
		apiKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		llmOpts...,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.llmClient = llmClient

	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		a.Close()
		return nil, err
	}

	factory, err := vectorFactory(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.loader = corpus.NewLoader(cfg.Corpus.Path)
	a.manager = index.NewManager()
	a.indexer = index.NewIndexer(a.loader, chunker, llmClient, factory, a.manager)

	retriever, err := retrieval.New(
		llmClient,
		a.manager,
		retrieval.Mode(cfg.Retrieval.Mode),
		cfg.Retrieval.TopK,
		cfg.Retrieval.MinSimilarity,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.retriever = retriever

	a.engine = agent.NewEngine(retriever, llmClient, cfg.Escalation.Team, cfg.Escalation.Note)

	if withHistory {
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}

		db, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			a.Close()
			return nil, err
		}
		a.db = db
	}

	return a, nil
}

func vectorFactory(cfg *config.Config) (vector.Factory, error) {
	switch cfg.Vector.Driver {
	case "memory":
		return memory.Factory(cfg.Vector.Collection, cfg.Vector.Dim), nil
	case "milvus":
		return milvus.Factory(cfg.Vector.Endpoint, cfg.Vector.Collection, cfg.Vector.Dim), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector driver %q", domain.ErrConfiguration, cfg.Vector.Driver)
	}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.manager != nil {
		a.manager.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	logger.Sync()
}
