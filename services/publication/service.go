// Package publication composes projection, embedding, retrieval and
// generation into the ingest and answer pipelines.
package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/publication-rag/internal/rag"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/repositories"
	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
)

// Embedder produces one vector per text in a single call
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever ranks stored publications against a query vector
type Retriever interface {
	Retrieve(ctx context.Context, queryVector []float32, topK int) ([]models.RankedResult, error)
}

// AnswerGenerator answers a query from an assembled context
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, query, contextText string) (string, error)
}

// AnswerResult is the outcome of a query
type AnswerResult struct {
	Answer       string                `json:"answer"`
	Publications []models.RankedResult `json:"publications"`
}

// Service is the pipeline orchestrator. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	embedder  Embedder
	ranker    Retriever
	generator AnswerGenerator
	repo      repositories.PublicationRepository
	txMgr     repositories.TransactionManager
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates the orchestrator. txMgr may be nil, in which case
// batch inserts are issued one by one without a transaction.
func NewService(
	embedder Embedder,
	ranker Retriever,
	generator AnswerGenerator,
	repo repositories.PublicationRepository,
	txMgr repositories.TransactionManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		embedder:  embedder,
		ranker:    ranker,
		generator: generator,
		repo:      repo,
		txMgr:     txMgr,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the ingestion timestamp source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest validates, embeds and stores one publication. The input is never
// modified. Nothing is stored when embedding fails, and a failed insert is
// not retried.
func (s *Service) Ingest(ctx context.Context, fields models.PublicationFields) (models.PublicationRef, error) {
	start := time.Now()
	log := s.logger.With(zap.String("operation", "ingest"), zap.String("title", fields.Title))

	if err := validateFields(fields); err != nil {
		log.Error("publication rejected", zap.Error(err))
		return models.PublicationRef{}, err
	}

	text := rag.ProjectForEmbedding(fields)
	log.Debug("projected publication for embedding", zap.Int("text_length", len(text)))

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		log.Error("failed to embed publication", zap.Error(err))
		return models.PublicationRef{}, err
	}

	p := models.NewPublication(fields, vectors[0], s.now())
	log = log.With(zap.String("publication_id", p.ID.String()))

	if err := s.repo.Insert(ctx, p); err != nil {
		err = services.WrapStorage("failed to store publication", err)
		log.Error("failed to insert publication", zap.Error(err))
		return models.PublicationRef{}, err
	}

	log.Info("publication ingested", zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return models.PublicationRef{ID: p.ID, Title: p.Title}, nil
}

// IngestBatch validates every record, embeds them in one call and inserts
// them in one transaction. Either all records are stored or none are.
func (s *Service) IngestBatch(ctx context.Context, batch []models.PublicationFields) ([]models.PublicationRef, error) {
	start := time.Now()
	log := s.logger.With(zap.String("operation", "ingest_batch"), zap.Int("batch_size", len(batch)))

	if len(batch) == 0 {
		log.Error("publication batch rejected", zap.Error(services.ErrEmptyBatch))
		return nil, services.ErrEmptyBatch
	}

	texts := make([]string, len(batch))
	for i, fields := range batch {
		if err := validateFields(fields); err != nil {
			err = prefixFields(err, fmt.Sprintf("publications[%d]", i))
			log.Error("publication batch rejected", zap.Int("index", i), zap.String("title", fields.Title), zap.Error(err))
			return nil, err
		}
		texts[i] = rag.ProjectForEmbedding(fields)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		log.Error("failed to embed publication batch", zap.Error(err))
		return nil, err
	}

	publishedAt := s.now()
	pubs := make([]*models.Publication, len(batch))
	refs := make([]models.PublicationRef, len(batch))
	for i, fields := range batch {
		pubs[i] = models.NewPublication(fields, vectors[i], publishedAt)
		refs[i] = models.PublicationRef{ID: pubs[i].ID, Title: pubs[i].Title}
	}

	insertAll := func(ctx context.Context) error {
		for _, p := range pubs {
			if err := s.repo.Insert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}

	if s.txMgr != nil {
		err = services.WithTransaction(ctx, s.txMgr, func(txCtx context.Context, _ repositories.Transaction) error {
			return insertAll(txCtx)
		})
	} else {
		err = insertAll(ctx)
	}
	if err != nil {
		err = services.WrapStorage("failed to store publication batch", err)
		log.Error("failed to insert publication batch", zap.Error(err))
		return nil, err
	}

	log.Info("publication batch ingested", zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return refs, nil
}

// Answer embeds the query, retrieves the topK nearest publications and
// generates an answer grounded in them. A topK of zero uses the ranker
// default. An empty catalog still produces an answer.
func (s *Service) Answer(ctx context.Context, query string, topK int) (*AnswerResult, error) {
	start := time.Now()
	log := s.logger.With(zap.String("operation", "answer"), zap.String("query", query), zap.Int("top_k", topK))

	if strings.TrimSpace(query) == "" {
		log.Error("query rejected", zap.Error(services.ErrEmptyQuery))
		return nil, services.ErrEmptyQuery
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		log.Error("failed to embed query", zap.Error(err))
		return nil, err
	}
	log.Debug("query embedded")

	results, err := s.ranker.Retrieve(ctx, vectors[0], topK)
	if err != nil {
		log.Error("failed to retrieve publications", zap.Error(err))
		return nil, err
	}
	log.Debug("publications retrieved", zap.Int("result_count", len(results)))

	contextText := rag.AssembleContext(results)

	answer, err := s.generator.GenerateAnswer(ctx, query, contextText)
	if err != nil {
		log.Error("failed to generate answer", zap.Error(err))
		return nil, err
	}

	log.Info("query answered",
		zap.Int("result_count", len(results)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return &AnswerResult{Answer: answer, Publications: results}, nil
}

// Get returns a stored publication without its embedding
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Publication, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPublicationNotFound.WithCause(err)
		}
		err = services.WrapStorage("failed to load publication", err)
		s.logger.Error("failed to get publication",
			zap.String("operation", "get"),
			zap.String("publication_id", id.String()),
			zap.Error(err))
		return nil, err
	}
	out := p.WithoutEmbedding()
	return &out, nil
}

func validateFields(fields models.PublicationFields) error {
	if err := utils.ValidateStruct(&fields); err != nil {
		if utils.IsValidationError(err) {
			return services.NewValidationError("invalid publication", utils.GetValidationFields(err))
		}
		return services.WrapInternal("failed to validate publication", err)
	}
	return nil
}

func prefixFields(err error, prefix string) error {
	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) || domainErr.Type != services.ErrorTypeValidation {
		return err
	}
	out := services.NewDomainError(services.ErrorTypeValidation, prefix+" is invalid", nil)
	for k, v := range domainErr.Details {
		out.Details[prefix+"."+k] = v
	}
	return out
}
