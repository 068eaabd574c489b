// Package adapter contains the clients that read ledger, position, balance and price data
// from upstream providers.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider errors. Clients wrap the underlying cause with one of these.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrProviderRateLimit   = errors.New("provider rate limited")
	ErrNotFound            = errors.New("resource not found")
	ErrPriceNotFound       = errors.New("price not found")
	ErrInvalidPrice        = errors.New("invalid price")
)

// StatusError is a non-2xx response that is not otherwise classified
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// classifyStatus maps an HTTP status onto a provider error
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrProviderRateLimit, status)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", ErrProviderTimeout, status)
	case status >= 500:
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, &StatusError{StatusCode: status, Body: body})
	default:
		return &StatusError{StatusCode: status, Body: body}
	}
}

// IsRetryable reports whether another attempt could succeed
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderRateLimit)
}

// countsAgainstProvider reports whether err says the provider itself is unhealthy
func countsAgainstProvider(err error) bool {
	return IsRetryable(err)
}
