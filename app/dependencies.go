package app

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/publication-rag/config"
	"github.com/upb/publication-rag/middleware"
	"github.com/upb/publication-rag/repositories"
	"github.com/upb/publication-rag/repositories/memory"
	"github.com/upb/publication-rag/repositories/postgres"
	"github.com/upb/publication-rag/services/embedding"
	"github.com/upb/publication-rag/services/generation"
	"github.com/upb/publication-rag/services/providers"
	"github.com/upb/publication-rag/services/providers/mock"
	"github.com/upb/publication-rag/services/providers/openai"
	"github.com/upb/publication-rag/services/publication"
	"github.com/upb/publication-rag/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil with the memory store
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Publications repositories.PublicationRepository
	TxManager    repositories.TransactionManager

	// Providers
	ProviderRegistry  *providers.Registry
	EmbeddingProvider providers.EmbeddingProvider
	ChatProvider      providers.ChatProvider

	// Pipeline
	Embedder           *embedding.Gateway
	Ranker             *retrieval.Ranker
	Generator          *generation.Generator
	PublicationService *publication.Service

	// AuthMiddleware guards ingestion routes; nil when no JWT secret is configured
	AuthMiddleware *middleware.AuthMiddleware

	chatModel      string
	embeddingModel string
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initPipeline(cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("vector_store", cfg.Retrieval.VectorStore),
		zap.String("provider", cfg.Providers.Kind))
	return deps, nil
}

// initStore opens the configured vector store
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	dims := cfg.Providers.OpenAI.EmbeddingDimensions

	switch cfg.Retrieval.VectorStore {
	case config.VectorStoreMemory:
		repo := memory.NewPublicationRepository(dims)
		d.Publications = repo
		d.TxManager = memory.NewTransactionManager(repo)
		d.Logger.Info("using in-memory vector store", zap.Int("dimensions", dims))
		return nil

	case config.VectorStorePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if cfg.Retrieval.InitSchema {
			if err := factory.InitSchema(ctx); err != nil {
				d.closeStore()
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}

		repos := factory.NewRepositories()
		d.Publications = repos.Publications
		d.TxManager = factory.GetTransactionManager()

		d.Logger.Info("database connection established",
			zap.String("connection", cfg.Database.LogString()))
		return nil

	default:
		return fmt.Errorf("unknown vector store %q", cfg.Retrieval.VectorStore)
	}
}

// initProviders registers the configured provider and resolves the chat and
// embedding models against it
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	chatModel, embeddingModel := cfg.Providers.OpenAI.ChatModel, cfg.Providers.OpenAI.EmbeddingModel

	var provider providers.Provider
	switch cfg.Providers.Kind {
	case config.ProviderOpenAI:
		if cfg.Providers.OpenAI.APIKey == "" {
			d.Logger.Warn("OPENAI_API_KEY is not set; provider calls will fail")
		}
		provider = openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:            cfg.Providers.OpenAI.APIKey,
			BaseURL:           cfg.Providers.OpenAI.BaseURL,
			Timeout:           cfg.Providers.OpenAI.Timeout,
			MaxRetries:        cfg.Providers.OpenAI.MaxRetries,
			RetryDelay:        time.Second,
			RequestsPerSecond: cfg.Providers.OpenAI.RequestsPerSecond,
		})
	case config.ProviderMock:
		provider = mock.New(cfg.Providers.OpenAI.EmbeddingDimensions)
		chatModel, embeddingModel = mock.ChatModel, mock.EmbeddingModel
	default:
		return fmt.Errorf("unknown provider %q", cfg.Providers.Kind)
	}

	if err := registry.RegisterProvider(provider); err != nil {
		return err
	}

	chat, err := registry.ChatProviderFor(chatModel)
	if err != nil {
		return fmt.Errorf("chat model %q: %w", chatModel, err)
	}
	embedder, err := registry.EmbeddingProviderFor(embeddingModel)
	if err != nil {
		return fmt.Errorf("embedding model %q: %w", embeddingModel, err)
	}

	d.ProviderRegistry = registry
	d.ChatProvider = chat
	d.EmbeddingProvider = embedder
	d.chatModel, d.embeddingModel = chatModel, embeddingModel

	d.Logger.Info("provider registered",
		zap.String("provider", provider.Name()),
		zap.String("chat_model", chatModel),
		zap.String("embedding_model", embeddingModel))
	return nil
}

// initPipeline builds the gateway, ranker, generator and orchestrator
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	variant, err := generation.ParsePromptVariant(cfg.Retrieval.PromptVariant)
	if err != nil {
		return err
	}

	d.Embedder = embedding.NewGateway(d.EmbeddingProvider, d.embeddingModel, cfg.Providers.OpenAI.EmbeddingDimensions, d.Logger)
	d.Ranker = retrieval.NewRanker(d.Publications, d.Logger).WithDefaultTopK(cfg.Retrieval.DefaultTopK)
	d.Generator = generation.NewGenerator(d.ChatProvider, d.chatModel, variant, d.Logger)
	d.PublicationService = publication.NewService(d.Embedder, d.Ranker, d.Generator, d.Publications, d.TxManager, d.Logger)
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("AUTH_JWT_SECRET not set, ingestion routes are unauthenticated")
		return
	}
	validator := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer auth enabled for ingestion routes")
}

func (d *Dependencies) closeStore() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
		d.RepoFactory = nil
		d.DB = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
