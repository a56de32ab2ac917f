package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
)

// Banner is the plain-text body served at the root path
const Banner = "Publication RAG API is running. Use /api/v1/publications endpoints."

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProviderChecker reports whether a model provider is reachable
type ProviderChecker interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db        *sql.DB
	store     string
	providers []ProviderChecker
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when the
// in-memory vector store is in use.
func NewHealthHandler(db *sql.DB, store string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// WithProviders adds model providers to the readiness checks
func (h *HealthHandler) WithProviders(providers ...ProviderChecker) *HealthHandler {
	h.providers = append(h.providers, providers...)
	return h
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Banner))
}

// HandleHealth handles GET /healthz and GET /health
// Liveness only; dependencies are not checked.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"vector_store": h.store}
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else if h.db == nil {
		checks["database"] = "not_configured"
	} else {
		checks["database"] = "healthy"
	}

	for _, p := range h.providers {
		key := "provider_" + p.Name()
		if p.IsAvailable(ctx) {
			checks[key] = "healthy"
			continue
		}
		h.logger.Warn("provider health check failed", zap.String("provider", p.Name()))
		checks[key] = "unhealthy"
		allHealthy = false
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	// pgvector must be installed for similarity queries to work
	var installed bool
	if err := h.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&installed); err != nil {
		return err
	}
	if !installed {
		return errors.New("pgvector extension is not installed")
	}
	return nil
}
