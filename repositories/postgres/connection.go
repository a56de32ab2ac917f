package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/publication-rag/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// NewDBFromConn wraps an existing pool, used by tests with sqlmock
func NewDBFromConn(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema enables pgvector and creates the publications table with an
// embedding column of the given dimension. Similarity queries scan the
// table exactly; no approximate index is created.
func (db *DB) InitSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimensions)
	}

	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS publications (
			id UUID PRIMARY KEY,
			title VARCHAR(500) NOT NULL,
			description TEXT NOT NULL,
			summary TEXT NOT NULL,
			requirements TEXT,
			benefits TEXT,
			company_description TEXT NOT NULL,
			brand VARCHAR(255) NOT NULL,
			function VARCHAR(255) NOT NULL,
			employment_level VARCHAR(255) NOT NULL,
			education_level VARCHAR(255) NOT NULL,
			company_name VARCHAR(255) NOT NULL,
			city VARCHAR(255) NOT NULL,
			salary_minimum DOUBLE PRECISION NOT NULL CHECK (salary_minimum >= 0),
			salary_maximum DOUBLE PRECISION NOT NULL,
			minimum_weekly_hours INTEGER NOT NULL CHECK (minimum_weekly_hours >= 0),
			maximum_weekly_hours INTEGER NOT NULL,
			published_date TIMESTAMPTZ NOT NULL,
			embedding vector(%d) NOT NULL,
			CHECK (salary_minimum <= salary_maximum),
			CHECK (minimum_weekly_hours <= maximum_weekly_hours)
		);

		CREATE INDEX IF NOT EXISTS idx_publications_published_date ON publications(published_date);
		CREATE INDEX IF NOT EXISTS idx_publications_city ON publications(city);
	`, dimensions)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully",
		zap.Int("dimensions", dimensions))
	return nil
}
