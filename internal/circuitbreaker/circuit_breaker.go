// Package circuitbreaker guards upstream providers from being hammered while they are down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/savings-metrics/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are blocked
	StateOpen State = "open"
	// StateHalfOpen means the circuit is testing if the service has recovered
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when too many requests are made in half-open state
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MaxFailures      int           // consecutive failures, or minimum calls before the rate applies
	FailureThreshold float64       // failure rate (0.0-1.0) that opens the circuit
	Timeout          time.Duration // time spent open before probing
	HalfOpenMaxCalls int

	// IsFailure decides whether an error counts against the provider.
	// Errors it rejects (such as a missing price point) are passed through untouched.
	IsFailure func(error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      5,
		FailureThreshold: 0.5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	config *Config
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	totalCalls       int
	inFlight         int
	consecutiveFails int
	lastStateChange  time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig("default")
	}
	return &CircuitBreaker{
		config:          config,
		now:             time.Now,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// Execute executes a function with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)

	// a cancelled caller says nothing about provider health
	if ctx.Err() != nil && err != nil {
		cb.release()
		return err
	}
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.config.Name,
			"state":          StateHalfOpen,
		}).Info("Circuit breaker transitioning to half-open")
	case StateHalfOpen:
		if cb.inFlight+cb.successes >= cb.config.HalfOpenMaxCalls {
			return ErrTooManyRequests
		}
	}

	cb.inFlight++
	return nil
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.inFlight--
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.inFlight--
	cb.totalCalls++

	if err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err)) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successes++
	cb.consecutiveFails = 0

	if cb.state == StateHalfOpen && cb.successes >= cb.config.HalfOpenMaxCalls {
		cb.setState(StateClosed)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.config.Name,
			"state":          StateClosed,
		}).Info("Circuit breaker closed after successful recovery")
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.consecutiveFails++

	switch cb.state {
	case StateClosed:
		if cb.shouldOpen() {
			fields := map[string]interface{}{
				"circuitBreaker":   cb.config.Name,
				"state":            StateOpen,
				"failures":         cb.failures,
				"totalCalls":       cb.totalCalls,
				"consecutiveFails": cb.consecutiveFails,
			}
			cb.setState(StateOpen)
			logging.WithFields(fields).Warn("Circuit breaker opened due to failures")
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.config.Name,
			"state":          StateOpen,
		}).Warn("Circuit breaker reopened after failure in half-open state")
	}
}

func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.consecutiveFails >= cb.config.MaxFailures {
		return true
	}
	if cb.totalCalls < cb.config.MaxFailures {
		return false
	}
	return float64(cb.failures)/float64(cb.totalCalls) >= cb.config.FailureThreshold
}

// setState changes state and starts a fresh counting window
func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = cb.now()
	cb.failures = 0
	cb.successes = 0
	cb.totalCalls = 0
	cb.consecutiveFails = 0
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}
