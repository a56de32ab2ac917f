package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/publication-rag/models"
)

var (
	// ErrNotFound is returned when a publication does not exist
	ErrNotFound = errors.New("publication not found")

	// ErrInvalidLimit is returned by QueryNearest when k is not positive
	ErrInvalidLimit = errors.New("nearest-neighbour limit must be positive")

	// ErrDimensionMismatch is returned when a vector does not match the store's dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context. Repository calls made with
	// this context run inside the transaction.
	Context() context.Context
}

// PublicationRepository is the vector index over ingested publications
type PublicationRepository interface {
	// Insert stores a publication together with its embedding
	Insert(ctx context.Context, publication *models.Publication) error

	// GetByID retrieves a publication by ID, without its embedding
	GetByID(ctx context.Context, id uuid.UUID) (*models.Publication, error)

	// QueryNearest returns at most k publications ordered by ascending
	// cosine distance to vector. Equal distances are ordered by id.
	QueryNearest(ctx context.Context, vector []float32, k int) ([]models.RankedResult, error)

	// Count returns the number of stored publications
	Count(ctx context.Context) (int, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Publications PublicationRepository
}
