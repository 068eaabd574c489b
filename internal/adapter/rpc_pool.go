package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/savings-metrics/internal/logging"
)

// ContractCaller executes read-only contract calls
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RPCPool manages multiple RPC endpoints with failover on rate limiting (429).
// It sticks to the current endpoint until it is rate limited, then moves to the next one.
type RPCPool struct {
	endpoints    []string
	clients      []*ethclient.Client
	currentIndex int
	mu           sync.RWMutex
	cooldowns    map[int]time.Time // when each endpoint was rate limited
	cooldownTime time.Duration
}

// NewRPCPoolFromURLs creates an RPC pool from comma-separated URLs
func NewRPCPoolFromURLs(urls string, cooldown time.Duration) (*RPCPool, error) {
	var endpoints []string
	for _, ep := range strings.Split(urls, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}

	pool := &RPCPool{
		endpoints:    endpoints,
		clients:      make([]*ethclient.Client, len(endpoints)),
		cooldowns:    make(map[int]time.Time),
		cooldownTime: cooldown,
	}

	// others are dialled lazily on failover
	client, err := ethclient.Dial(endpoints[0])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary RPC endpoint: %w", err)
	}
	pool.clients[0] = client

	logging.WithField("endpoints", len(endpoints)).Info("RPC pool initialized")
	return pool, nil
}

// Caller returns the current active client
func (p *RPCPool) Caller() ContractCaller {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[p.currentIndex]
}

// OnRateLimited marks the current endpoint as rate limited and switches to the next
// endpoint out of cooldown. It fails when every endpoint is cooling down.
func (p *RPCPool) OnRateLimited(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cooldowns[p.currentIndex] = time.Now()
	from := p.currentIndex

	for i := 0; i < len(p.endpoints)-1; i++ {
		next := (from + 1 + i) % len(p.endpoints)

		if since, limited := p.cooldowns[next]; limited {
			if time.Since(since) < p.cooldownTime {
				continue
			}
			delete(p.cooldowns, next)
		}

		if err := p.switchToEndpoint(next); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("endpoint", next).Warn("Failed to switch RPC endpoint")
			continue
		}

		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"from": from,
			"to":   next,
		}).Info("Switched RPC endpoint after rate limit")
		return nil
	}

	return fmt.Errorf("%w: all %d RPC endpoints are rate limited", ErrProviderRateLimit, len(p.endpoints))
}

// switchToEndpoint must be called with the lock held
func (p *RPCPool) switchToEndpoint(index int) error {
	if p.clients[index] == nil {
		client, err := ethclient.Dial(p.endpoints[index])
		if err != nil {
			return fmt.Errorf("failed to connect to endpoint %d: %w", index, err)
		}
		p.clients[index] = client
	}
	p.currentIndex = index
	return nil
}

// IsRateLimitError checks if an error indicates rate limiting (429)
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "throttl")
}

// Close closes all client connections
func (p *RPCPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, client := range p.clients {
		if client != nil {
			client.Close()
			p.clients[i] = nil
		}
	}
}
