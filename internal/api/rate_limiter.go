package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/savings-metrics/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	limit     rate.Limit
	burstSize int
}

// NewRateLimiter creates a limiter allowing rps requests per second per client.
// A non-positive rps disables limiting.
func NewRateLimiter(rps, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		limit:     limit,
		burstSize: burst,
	}
}

// getLimiter returns the limiter for a client key, creating it on first use
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.limit, rl.burstSize)
	rl.limiters[key] = limiter
	return limiter
}

// retryAfterSeconds is how long until the bucket refills one token
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit == rate.Inf || rl.limit <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

// clientKey identifies the caller by the first forwarded address, else the peer IP
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.getLimiter(clientKey(r)).Allow() {
				retryAfter := rl.retryAfterSeconds()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				respondServiceError(w, r, apperrors.NewRateLimitError(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
