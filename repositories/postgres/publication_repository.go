package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
	"go.uber.org/zap"
)

const publicationColumns = `id, title, description, summary, requirements, benefits,
			company_description, brand, function, employment_level, education_level,
			company_name, city, salary_minimum, salary_maximum,
			minimum_weekly_hours, maximum_weekly_hours, published_date`

// PublicationRepository implements the repositories.PublicationRepository interface on pgvector
type PublicationRepository struct {
	db         *DB
	dimensions int
	logger     *zap.Logger
}

// NewPublicationRepository creates a new publication repository.
// A positive dimensions value makes Insert and QueryNearest reject vectors
// of any other length before they reach the database.
func NewPublicationRepository(db *DB, dimensions int, logger *zap.Logger) repositories.PublicationRepository {
	return &PublicationRepository{
		db:         db,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Insert stores a publication together with its embedding
func (r *PublicationRepository) Insert(ctx context.Context, p *models.Publication) error {
	if err := r.checkDimensions(p.Embedding); err != nil {
		return err
	}

	query := `
		INSERT INTO publications (` + publicationColumns + `, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Summary,
		p.Requirements,
		p.Benefits,
		p.CompanyDescription,
		p.Brand,
		p.Function,
		p.EmploymentLevel,
		p.EducationLevel,
		p.CompanyName,
		p.City,
		p.SalaryMinimum,
		p.SalaryMaximum,
		p.MinimumWeeklyHours,
		p.MaximumWeeklyHours,
		p.PublishedDate,
		pgvector.NewVector(p.Embedding),
	)

	if err != nil {
		return fmt.Errorf("failed to insert publication: %w", err)
	}
	if tx := txFromContext(ctx); tx != nil {
		tx.written++
	}

	r.logger.Debug("publication inserted",
		zap.String("id", p.ID.String()),
		zap.String("title", p.Title))
	return nil
}

// GetByID retrieves a publication by ID, without its embedding
func (r *PublicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Publication, error) {
	query := `
		SELECT ` + publicationColumns + `
		FROM publications
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	p := &models.Publication{}

	err := executor.QueryRowContext(ctx, query, id).Scan(publicationDest(p)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}

	return p, nil
}

// distanceExpr is the cosine distance to $1. pgvector yields NaN when either
// side is a zero vector; that case is reported as 1, matching the memory store.
const distanceExpr = `COALESCE(NULLIF(embedding <=> $1, 'NaN'::float8), 1)`

// QueryNearest returns at most k publications ordered by ascending cosine distance
func (r *PublicationRepository) QueryNearest(ctx context.Context, vector []float32, k int) ([]models.RankedResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", repositories.ErrInvalidLimit, k)
	}
	if err := r.checkDimensions(vector); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + publicationColumns + `, ` + distanceExpr + ` AS distance
		FROM publications
		ORDER BY distance, id
		LIMIT $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest publications: %w", err)
	}
	defer rows.Close()

	results := make([]models.RankedResult, 0, k)
	for rows.Next() {
		var rr models.RankedResult
		dest := append(publicationDest(&rr.Publication), &rr.Distance)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		results = append(results, rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publications: %w", err)
	}

	r.logger.Debug("nearest publications queried",
		zap.Int("k", k),
		zap.Int("results", len(results)))
	return results, nil
}

// Count returns the number of stored publications
func (r *PublicationRepository) Count(ctx context.Context) (int, error) {
	executor := GetExecutor(ctx, r.db)

	var count int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM publications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count publications: %w", err)
	}
	return count, nil
}

func (r *PublicationRepository) checkDimensions(vector []float32) error {
	if r.dimensions > 0 && len(vector) != r.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", repositories.ErrDimensionMismatch, r.dimensions, len(vector))
	}
	return nil
}

// publicationDest returns scan targets matching publicationColumns
func publicationDest(p *models.Publication) []interface{} {
	return []interface{}{
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Summary,
		&p.Requirements,
		&p.Benefits,
		&p.CompanyDescription,
		&p.Brand,
		&p.Function,
		&p.EmploymentLevel,
		&p.EducationLevel,
		&p.CompanyName,
		&p.City,
		&p.SalaryMinimum,
		&p.SalaryMaximum,
		&p.MinimumWeeklyHours,
		&p.MaximumWeeklyHours,
		&p.PublishedDate,
	}
}
