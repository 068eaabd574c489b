package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/savings-metrics/internal/errors"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     types.ServiceError `json:"error"`
	RequestID string             `json:"requestId,omitempty"`
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimitExceeded  = apperrors.CodeRateLimitExceeded
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondServiceError logs err and writes its mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, svcErr := mapServiceError(err)

	logger := logging.FromContext(r.Context()).WithError(err).WithField("status", status)
	if apperrors.IsUserError(err) {
		logger.Warn("Request rejected")
	} else {
		logger.Error("Request failed")
	}

	respondJSON(w, status, ErrorResponse{
		Error:     svcErr,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// mapServiceError maps service errors to an HTTP status and response body.
// Internal errors never leak their cause.
func mapServiceError(err error) (int, types.ServiceError) {
	if errors.Is(err, context.Canceled) && !apperrors.IsProviderUnavailable(err) {
		return http.StatusServiceUnavailable, types.ServiceError{Code: ErrCodeServiceUnavailable, Message: "Request cancelled"}
	}

	catErr := apperrors.Categorize(err)
	switch catErr.Category {
	case apperrors.CategoryValidation:
		svcErr := catErr.ToServiceError()
		svcErr.Code = ErrCodeInvalidInput
		return apperrors.GetHTTPStatusCode(catErr), *svcErr
	case apperrors.CategoryProvider, apperrors.CategoryRateLimit:
		return apperrors.GetHTTPStatusCode(catErr), *catErr.ToServiceError()
	default:
		return http.StatusInternalServerError, types.ServiceError{Code: ErrCodeInternalError, Message: "An internal error occurred"}
	}
}
