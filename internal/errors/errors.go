// Package errors provides categorized errors for the savings metrics service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/savings-metrics/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryProvider represents failure of a whole upstream data provider
	CategoryProvider ErrorCategory = "provider"
	// CategoryPrice represents a single unresolvable price point
	CategoryPrice ErrorCategory = "price"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// Error codes
const (
	CodeInvalidParameter    = "INVALID_PARAMETER"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeProviderTimeout     = "PROVIDER_TIMEOUT"
	CodePriceLookupFailed   = "PRICE_LOOKUP_FAILED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    message,
		Cause:      cause,
	}
}

// NewProviderUnavailableError is fatal to a metrics computation: the ledger or a
// position snapshot source could not be read, so no partial result is returned.
func NewProviderUnavailableError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeProviderUnavailable,
		Message:    fmt.Sprintf("data provider unavailable: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewProviderTimeoutError creates a provider timeout error
func NewProviderTimeoutError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusGatewayTimeout,
		Code:       CodeProviderTimeout,
		Message:    fmt.Sprintf("data provider timeout: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewPriceLookupError records a single failed oracle lookup. It is absorbed by the
// engine and never returned to API callers.
func NewPriceLookupError(at time.Time, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPrice,
		StatusCode: http.StatusBadGateway,
		Code:       CodePriceLookupFailed,
		Message:    fmt.Sprintf("price lookup failed for %s", at.UTC().Format(time.RFC3339)),
		Cause:      cause,
		Details: map[string]interface{}{
			"timestamp": at.Unix(),
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	return NewInternalError("unexpected error", err)
}

// categorizeServiceError categorizes a ServiceError
func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	switch err.Code {
	case CodeInvalidParameter, "INVALID_INPUT":
		return &CategorizedError{
			Category:   CategoryValidation,
			StatusCode: http.StatusBadRequest,
			Code:       err.Code,
			Message:    err.Message,
			Details:    err.Details,
		}
	case CodeProviderUnavailable:
		return &CategorizedError{
			Category:   CategoryProvider,
			StatusCode: http.StatusBadGateway,
			Code:       err.Code,
			Message:    err.Message,
			Details:    err.Details,
		}
	case CodeRateLimitExceeded:
		return &CategorizedError{
			Category:   CategoryRateLimit,
			StatusCode: http.StatusTooManyRequests,
			Code:       err.Code,
			Message:    err.Message,
			Details:    err.Details,
		}
	default:
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       err.Code,
			Message:    err.Message,
			Details:    err.Details,
		}
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsProviderUnavailable reports whether err is a whole-provider failure
func IsProviderUnavailable(err error) bool {
	var catErr *CategorizedError
	if !stderrors.As(err, &catErr) {
		return false
	}
	return catErr.Category == CategoryProvider
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
