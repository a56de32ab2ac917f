// Package memory is an in-process vector index with exact cosine ranking.
// It backs tests and single-node deployments without PostgreSQL.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
)

var errDuplicateID = errors.New("duplicate publication id")

type txContextKey struct{}

// PublicationRepository stores publications in insertion order and ranks
// them by brute-force cosine distance.
type PublicationRepository struct {
	mu         sync.RWMutex
	dimensions int
	rows       []*models.Publication
	byID       map[uuid.UUID]int
}

var _ repositories.PublicationRepository = (*PublicationRepository)(nil)

// NewPublicationRepository creates an empty store. A positive dimensions
// value rejects vectors of any other length.
func NewPublicationRepository(dimensions int) *PublicationRepository {
	return &PublicationRepository{
		dimensions: dimensions,
		byID:       make(map[uuid.UUID]int),
	}
}

// Insert stores a copy of the publication. Inside a transaction the row is
// staged and only becomes visible on commit.
func (r *PublicationRepository) Insert(ctx context.Context, p *models.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.dimensions > 0 && len(p.Embedding) != r.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", repositories.ErrDimensionMismatch, r.dimensions, len(p.Embedding))
	}

	row := clonePublication(p)

	if tx, ok := ctx.Value(txContextKey{}).(*Transaction); ok && tx.repo == r {
		return tx.stage(row)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(row)
}

func (r *PublicationRepository) insertLocked(row *models.Publication) error {
	if _, exists := r.byID[row.ID]; exists {
		return fmt.Errorf("failed to insert publication: %w: %s", errDuplicateID, row.ID)
	}
	r.byID[row.ID] = len(r.rows)
	r.rows = append(r.rows, row)
	return nil
}

// GetByID retrieves a publication by ID, without its embedding
func (r *PublicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrNotFound, id)
	}
	p := r.rows[idx].WithoutEmbedding()
	return &p, nil
}

// QueryNearest returns at most k publications ordered by ascending cosine
// distance, ties broken by id.
func (r *PublicationRepository) QueryNearest(ctx context.Context, vector []float32, k int) ([]models.RankedResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", repositories.ErrInvalidLimit, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.dimensions > 0 && len(vector) != r.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", repositories.ErrDimensionMismatch, r.dimensions, len(vector))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		row      *models.Publication
		distance float64
	}
	all := make([]scored, len(r.rows))
	for i, row := range r.rows {
		all[i] = scored{row: row, distance: CosineDistance(vector, row.Embedding)}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].row.ID.String() < all[j].row.ID.String()
	})

	if k > len(all) {
		k = len(all)
	}
	results := make([]models.RankedResult, k)
	for i := 0; i < k; i++ {
		results[i] = models.RankedResult{
			Publication: all[i].row.WithoutEmbedding(),
			Distance:    all[i].distance,
		}
	}
	return results, nil
}

// Count returns the number of committed publications
func (r *PublicationRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows), nil
}

// CosineDistance is 1 minus the cosine similarity of a and b. A zero vector
// is treated as orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}

func clonePublication(p *models.Publication) *models.Publication {
	cp := *p
	cp.PublicationFields = p.PublicationFields.Clone()
	cp.Embedding = make([]float32, len(p.Embedding))
	copy(cp.Embedding, p.Embedding)
	return &cp
}
