package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/providers"
	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, err.Error(), details)

	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, err.Error())

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, err.Error())

	case services.IsExternalError(err):
		writeErr = utils.WriteBadGateway(w, err.Error(), providerDetails(err, details))

	case services.IsStorageError(err):
		logger.Error("vector store failure", zap.Error(err))
		writeErr = utils.WriteServiceUnavailable(w, "Publication store unavailable")

	case services.IsInternalError(err):
		// Internal details stay in the log
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// providerDetails adds the provider name, code and retryability of a
// wrapped ProviderError to the response details
func providerDetails(err error, details map[string]interface{}) map[string]interface{} {
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		return details
	}
	out := make(map[string]interface{}, len(details)+3)
	for k, v := range details {
		out[k] = v
	}
	out["provider"] = provErr.Provider
	out["code"] = provErr.Code
	out["retryable"] = provErr.Retryable
	return out
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var writeErr error
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		writeErr = utils.WriteBadRequest(w, "Validation failed", details)
	} else {
		writeErr = utils.WriteBadRequest(w, err.Error(), nil)
	}
	if writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
