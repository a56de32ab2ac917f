package postgres

import (
	"context"

	"github.com/upb/publication-rag/config"
	"github.com/upb/publication-rag/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db         *DB
	dimensions int
	logger     *zap.Logger
}

// NewRepositoryFactory connects to the database described by cfg
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{
		db:         db,
		dimensions: cfg.Providers.OpenAI.EmbeddingDimensions,
		logger:     logger,
	}, nil
}

// NewRepositoryFactoryFromDB builds a factory around an open connection
func NewRepositoryFactoryFromDB(db *DB, dimensions int, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, dimensions: dimensions, logger: logger}
}

// InitSchema creates the pgvector extension and the publications table
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx, f.dimensions)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Publications: NewPublicationRepository(f.db, f.dimensions, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
