// Package retrieval ranks stored publications against a query vector.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
	"github.com/upb/publication-rag/services"
	"go.uber.org/zap"
)

// DefaultTopK is used when the caller does not ask for a specific count
const DefaultTopK = 5

// Ranker delegates similarity queries to the vector index
type Ranker struct {
	repo        repositories.PublicationRepository
	defaultTopK int
	logger      *zap.Logger
}

// NewRanker creates a ranker over repo
func NewRanker(repo repositories.PublicationRepository, logger *zap.Logger) *Ranker {
	return &Ranker{repo: repo, defaultTopK: DefaultTopK, logger: logger}
}

// WithDefaultTopK replaces the count used when callers pass zero.
// Non-positive values are ignored.
func (r *Ranker) WithDefaultTopK(k int) *Ranker {
	if k > 0 {
		r.defaultTopK = k
	}
	return r
}

// Retrieve returns at most topK results in the store's ascending distance
// order. A topK of zero means the ranker default. Fewer stored records than topK
// yields every record; zero records yields an empty, non-nil slice.
func (r *Ranker) Retrieve(ctx context.Context, queryVector []float32, topK int) ([]models.RankedResult, error) {
	if topK == 0 {
		topK = r.defaultTopK
	}

	results, err := r.repo.QueryNearest(ctx, queryVector, topK)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidLimit) {
			return nil, services.NewDomainError(services.ErrorTypeStorage, fmt.Sprintf("invalid topK %d", topK), err)
		}
		return nil, services.WrapStorage("similarity query failed", err)
	}
	if results == nil {
		results = []models.RankedResult{}
	}
	if len(results) > topK {
		results = results[:topK]
	}

	r.logger.Debug("publications retrieved",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))

	return results, nil
}
