package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/publication-rag/middleware"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/publication"
	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
)

// PublicationService is the pipeline surface the HTTP layer depends on
type PublicationService interface {
	Ingest(ctx context.Context, fields models.PublicationFields) (models.PublicationRef, error)
	IngestBatch(ctx context.Context, batch []models.PublicationFields) ([]models.PublicationRef, error)
	Answer(ctx context.Context, query string, topK int) (*publication.AnswerResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Publication, error)
}

// QueryRequest is the body of POST /api/v1/publications/query.
// A zero TopK uses the service default.
type QueryRequest struct {
	Query string `json:"query" validate:"required,notblank"`
	TopK  int    `json:"topK" validate:"gte=0"`
}

// BatchRequest is the body of POST /api/v1/publications/batch
type BatchRequest struct {
	Publications []models.PublicationFields `json:"publications"`
}

// PublicationHandler handles publication ingestion and query requests
type PublicationHandler struct {
	service PublicationService
	maxTopK int
	logger  *zap.Logger
}

// NewPublicationHandler creates a new PublicationHandler
func NewPublicationHandler(service PublicationService, maxTopK int, logger *zap.Logger) *PublicationHandler {
	return &PublicationHandler{
		service: service,
		maxTopK: maxTopK,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/publications
func (h *PublicationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var fields models.PublicationFields
	if err := utils.DecodeJSON(w, r, &fields); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	ref, err := h.service.Ingest(ctx, fields)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, ref); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleBatch handles POST /api/v1/publications/batch
func (h *PublicationHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req BatchRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	refs, err := h.service.IngestBatch(ctx, req.Publications)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, refs); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleQuery handles POST /api/v1/publications/query
func (h *PublicationHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req QueryRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if req.TopK != 0 {
		if err := utils.ValidateIntRange(req.TopK, "topK", 1, h.maxTopK); err != nil {
			HandleServiceError(w, services.NewValidationError(services.ErrInvalidTopK.Message, map[string]string{"topK": err.Error()}), h.logger)
			return
		}
	}

	result, err := h.service.Answer(ctx, req.Query, req.TopK)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/publications/{id}
func (h *PublicationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, p); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
