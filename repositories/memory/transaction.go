package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
)

var errTxDone = errors.New("transaction already finished")

// TransactionManager provides all-or-nothing batches over a PublicationRepository
type TransactionManager struct {
	repo *PublicationRepository
}

// NewTransactionManager creates a transaction manager for repo
func NewTransactionManager(repo *PublicationRepository) repositories.TransactionManager {
	return &TransactionManager{repo: repo}
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Transaction{repo: tm.repo}
	tx.ctx = context.WithValue(ctx, txContextKey{}, tx)
	return tx, nil
}

// InTransaction executes fn and commits its staged inserts, or discards them on error
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Transaction stages inserts until Commit
type Transaction struct {
	mu      sync.Mutex
	repo    *PublicationRepository
	ctx     context.Context
	pending []*models.Publication
	done    bool
}

func (t *Transaction) stage(row *models.Publication) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.pending = append(t.pending, row)
	return nil
}

// Commit makes every staged insert visible at once. If any row would
// collide with an existing id, nothing is applied.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("failed to commit transaction: %w", errTxDone)
	}
	t.done = true

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(t.pending))
	for _, row := range t.pending {
		if _, exists := t.repo.byID[row.ID]; exists {
			return fmt.Errorf("failed to commit transaction: %w: %s", errDuplicateID, row.ID)
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("failed to commit transaction: %w: %s", errDuplicateID, row.ID)
		}
		seen[row.ID] = struct{}{}
	}
	for _, row := range t.pending {
		if err := t.repo.insertLocked(row); err != nil {
			return err
		}
	}
	t.pending = nil
	return nil
}

// Rollback discards staged inserts. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.pending = nil
	return nil
}

// Context returns the transaction context
func (t *Transaction) Context() context.Context {
	return t.ctx
}
