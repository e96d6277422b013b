// Package app wires configuration into the running components shared by the
// API server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"gilda/internal/config"
	"gilda/internal/extract"
	"gilda/internal/handlers"
	"gilda/internal/http"
	"gilda/internal/indexer"
	"gilda/internal/llm"
	"gilda/internal/rag"
	"gilda/internal/service"
	"gilda/internal/share"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

// Options selects optional components.
type Options struct {
	// Shares connects the Redis share store. Only the API server needs it.
	Shares bool
}

// App holds the wired components.
type App struct {
	Config    *config.Config
	DB        *storage.DB
	Documents *storage.DocumentRepo
	History   *storage.HistoryRepo
	Vectors   vectorstore.VectorStore
	Embedder  *llm.EmbeddingsClient
	Pipeline  *indexer.Pipeline
	Engine    rag.Engine
	Extractor *extract.PDFExtractor
	Shares    share.Store

	migrate func(ctx context.Context) error
	closers []func() error
}

// SetupLogging installs the default slog logger for cfg.
func SetupLogging(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
	return logger
}

// New opens the database, vector store and clients described by cfg.
// Call Migrate before serving requests on a fresh database.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == config.DriverSQLite {
		dsn = cfg.DBPath
	}
	db, err := storage.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	slog.Info("Database opened", "driver", cfg.DBDriver)

	a.Documents = storage.NewDocumentRepo(db)
	a.History = storage.NewHistoryRepo(db)

	if err := a.openVectorStore(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Embedder = llm.NewEmbeddingsClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions,
		llm.WithEmbeddingTimeout(cfg.EmbeddingTimeout),
		llm.WithRateLimit(cfg.EmbeddingRateLimit, cfg.EmbeddingRateBurst),
	)
	chatClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel,
		llm.WithChatTimeout(cfg.LLMTimeout),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
	)

	a.Pipeline = indexer.NewPipeline(a.Documents, a.Vectors, a.Embedder, indexer.Options{
		ChunkSize:               cfg.ChunkSize,
		Overlap:                 cfg.ChunkOverlap,
		EmbedBatchSize:          cfg.EmbedBatchSize,
		BatchFailurePolicy:      cfg.BatchFailurePolicy,
		ContinueOnDocumentError: cfg.ContinueOnDocumentError,
	})

	prompts := rag.DefaultPrompts()
	if cfg.PromptsFile != "" {
		if prompts, err = rag.LoadPrompts(cfg.PromptsFile); err != nil {
			_ = a.Close()
			return nil, err
		}
		slog.Info("Prompts loaded", "path", cfg.PromptsFile)
	}

	assembler := rag.NewAssembler(a.Embedder, a.Vectors, a.Documents, cfg.MaxContextChars)
	generator := rag.NewGenerator(chatClient, cfg.LLMMaxTokens)
	a.Engine = rag.NewEngine(assembler, generator, rag.EngineOptions{
		RetrievalLimit:       cfg.RetrievalLimit,
		DetailRetrievalLimit: cfg.DetailRetrievalLimit,
		DetailMaxTokens:      cfg.LLMDetailMaxTokens,
		Prompts:              prompts,
	})
	slog.Info("RAG engine initialized", "model", cfg.LLMModel, "embedding_model", cfg.EmbeddingModel)

	a.Extractor = extract.NewPDFExtractor(extract.ExecRunner{}, cfg.PDFToTextPath)

	if opts.Shares {
		client := share.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, client.Close)
		a.Shares = share.NewRedisStore(client, cfg.ShareTTL)

		// The share store is optional: without it only share links fail,
		// and the health check reports the service as degraded.
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.Shares.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("Share store unreachable, share links unavailable until it recovers", "addr", cfg.RedisAddr, "error", err)
		} else {
			slog.Info("Share store connected", "addr", cfg.RedisAddr, "ttl", cfg.ShareTTL)
		}
	}

	return a, nil
}

func (a *App) openVectorStore() error {
	cfg := a.Config
	switch cfg.VectorBackend {
	case config.VectorBackendPgVector:
		store := vectorstore.NewPgVectorStore(a.DB, cfg.StoreBatchSize)
		a.Vectors = store
		a.migrate = func(ctx context.Context) error {
			return store.EnsureSchema(ctx, cfg.EmbeddingDimensions)
		}
	case config.VectorBackendSQLite:
		store := vectorstore.NewSQLiteStore(a.DB, cfg.StoreBatchSize)
		a.Vectors = store
		a.migrate = store.EnsureSchema
	case config.VectorBackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, cfg.StoreBatchSize)
		if err != nil {
			return fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.Vectors = store
		a.closers = append(a.closers, store.Close)
		a.migrate = func(ctx context.Context) error {
			return store.EnsureCollection(ctx, cfg.EmbeddingDimensions)
		}
	default:
		return fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
	slog.Info("Vector store selected", "backend", cfg.VectorBackend)
	return nil
}

// Migrate creates the relational tables and the vector index.
func (a *App) Migrate(ctx context.Context) error {
	if err := storage.Migrate(a.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if a.migrate != nil {
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("failed to prepare vector store: %w", err)
		}
	}
	slog.Info("Migrations applied", "driver", a.Config.DBDriver, "vector_backend", a.Config.VectorBackend)
	return nil
}

// ValidateEmbeddings embeds a sample text to fail fast on a wrong key, model or dimension.
func (a *App) ValidateEmbeddings(ctx context.Context) error {
	vec, err := a.Embedder.EmbedText(ctx, "test")
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	slog.Info("Embedding client validated", "vector_size", len(vec))
	return nil
}

// Router builds the HTTP handler. New must have been called with Options.Shares.
func (a *App) Router() nethttp.Handler {
	checks := []handlers.HealthCheck{
		{Name: "database", Critical: true, Check: a.DB.PingContext},
		{Name: "vector_store", Critical: true, Check: a.Vectors.Ping},
	}
	if a.Shares != nil {
		checks = append(checks, handlers.HealthCheck{Name: "share_store", Check: a.Shares.Ping})
	}

	return http.NewRouter(&http.Deps{
		ChatService:     service.NewChatService(a.Engine, a.Shares, a.History),
		DocumentService: service.NewDocumentService(a.Documents, a.Vectors, a.Pipeline, a.Extractor, a.Config.EmbeddingModel),
		ShareService:    service.NewShareService(a.Shares, a.Documents, a.Config.PublicBaseURL),
		HistoryService:  service.NewHistoryService(a.History),
		HealthChecks:    checks,
		MaxUploadBytes:  a.Config.MaxUploadBytes,
	})
}

// Close releases every opened resource in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
