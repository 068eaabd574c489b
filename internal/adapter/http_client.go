package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/savings-metrics/internal/circuitbreaker"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/retry"
	"golang.org/x/time/rate"
)

// ClientConfig configures an HTTP provider client
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RPS        int // 0 disables client-side rate limiting
}

// jsonClient performs GET requests against a JSON provider API with rate limiting,
// retries and a circuit breaker
type jsonClient struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	retry   *retry.RetryConfig
}

func newJSONClient(name string, cfg ClientConfig) *jsonClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retryConfig := retry.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryConfig.MaxAttempts = cfg.MaxRetries
	}
	retryConfig.Retryable = func(err error) bool {
		return IsRetryable(err) && !errors.Is(err, circuitbreaker.ErrCircuitOpen)
	}

	breakerConfig := circuitbreaker.DefaultConfig(name)
	breakerConfig.IsFailure = countsAgainstProvider

	c := &jsonClient{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(breakerConfig),
		retry:   retryConfig,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS)
	}
	return c
}

// getJSON fetches path and decodes the body into out
func (c *jsonClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return retry.Do(ctx, c.retry, func(ctx context.Context, attempt int) error {
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.do(ctx, endpoint, out)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"provider": c.name,
				"breaker":  c.breaker.GetState(),
			}).Warn("Provider request rejected by circuit breaker")
			return fmt.Errorf("%s: %w: %w", c.name, ErrProviderUnavailable, err)
		}
		return err
	})
}

func (c *jsonClient) do(ctx context.Context, endpoint string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			return fmt.Errorf("%s: %w: %w", c.name, ErrProviderTimeout, err)
		}
		return fmt.Errorf("%s: %w: %w", c.name, ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"provider": c.name,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Provider request completed")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", c.name, err)
	}
	return nil
}
