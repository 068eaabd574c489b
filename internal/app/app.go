// Package app assembles the savings metrics engine from configuration.
package app

import (
	"fmt"
	"time"

	"github.com/savings-metrics/internal/adapter"
	"github.com/savings-metrics/internal/config"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/ratelimit"
	"github.com/savings-metrics/internal/service"
	"github.com/savings-metrics/internal/storage"
)

const rpcCooldown = 60 * time.Second

// App owns the engine and every connection it was built on
type App struct {
	Service *service.SavingsMetricsService

	Postgres   *storage.PostgresDB
	ClickHouse *storage.ClickHouseDB // nil unless prices come from ClickHouse
	Redis      *storage.RedisCache   // nil unless the price cache or RPC budget needs it

	Ledger       *storage.LedgerRepository
	Wallets      *storage.WalletRepository
	PriceHistory *storage.PriceHistoryRepository // nil unless prices come from ClickHouse
	PriceCache   *storage.CachedPriceSource      // nil unless the price cache is enabled

	closers []func()
}

// New connects to every configured source and builds the engine.
// On error, connections opened so far are closed.
func New(cfg *config.Config) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.GetGlobalLogger()
	a = &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Postgres, err = storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	a.closers = append(a.closers, a.Postgres.Close)
	a.Ledger = storage.NewLedgerRepository(a.Postgres)
	a.Wallets = storage.NewWalletRepository(a.Postgres)

	clientCfg := func(url string, rps int) adapter.ClientConfig {
		return adapter.ClientConfig{
			BaseURL:    url,
			Timeout:    cfg.Providers.RequestTimeout,
			MaxRetries: cfg.Providers.MaxRetries,
			RPS:        rps,
		}
	}

	var ledger service.LedgerProvider
	switch cfg.Providers.LedgerSource {
	case config.SourcePostgres:
		ledger = a.Ledger
	default:
		ledger = adapter.NewLedgerClient(clientCfg(cfg.Providers.LedgerURL, 0))
	}

	var oracle storage.PriceSource
	switch cfg.Providers.PriceSource {
	case config.SourceClickHouse:
		a.ClickHouse, err = storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.ClickHouse.Close() })
		a.PriceHistory = storage.NewPriceHistoryRepository(a.ClickHouse, cfg.Protocols.SyntheticPriceSymbol, storage.DefaultMaxPriceDistance)
		oracle = a.PriceHistory
	default:
		oracle = adapter.NewPriceOracleClient(clientCfg(cfg.Providers.PriceOracleURL, cfg.Providers.PriceOracleRPS), cfg.Protocols.SyntheticPriceSymbol)
	}

	if cfg.Cache.Enabled || cfg.Chain.RPCBudgetPerSecond > 0 {
		a.Redis, err = storage.NewRedisCache(&cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.Redis.Close() })
	}

	if cfg.Cache.Enabled {
		cache := storage.NewCacheService(a.Redis, cfg.Cache.PriceTTL)
		a.PriceCache = storage.NewCachedPriceSource(oracle, cache, cfg.Protocols.SyntheticPriceSymbol, cfg.Cache.PriceTTL, cfg.Cache.CurrentPriceTTL)
		oracle = a.PriceCache
	}

	pool, err := adapter.NewRPCPoolFromURLs(cfg.Chain.RPCURL, rpcCooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RPC pool: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	var callers adapter.CallerPool = pool
	if cfg.Chain.RPCBudgetPerSecond > 0 {
		budget, err := ratelimit.NewCallBudget(&ratelimit.CallBudgetConfig{
			Redis: a.Redis.Client(),
			Name:  "chain_rpc",
			Limit: cfg.Chain.RPCBudgetPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RPC budget: %w", err)
		}
		callers = adapter.NewBudgetedPool(pool, budget)
		logger.WithField("calls_per_second", budget.Limit()).Info("RPC call budget enabled")
	}

	// balance and rewards are valued at one quote per computation
	quote := service.NewSharedQuote(oracle)

	balances, err := adapter.NewSyntheticBalanceReader(a.Wallets, callers, quote, cfg.Chain.SyntheticTokenAddress, cfg.Chain.SyntheticTokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize synthetic balance reader: %w", err)
	}

	a.Service = service.NewSavingsMetricsService(
		ledger,
		adapter.NewLendingClient(clientCfg(cfg.Providers.LendingURL, 0)),
		balances,
		quote,
		service.EngineConfig{
			LendingSymbol:          cfg.Protocols.LendingSymbol,
			SyntheticSymbols:       cfg.Protocols.SyntheticSymbols,
			PriceLookupConcurrency: cfg.Providers.PriceLookupConcurrency,
		},
	)

	logger.WithFields(map[string]interface{}{
		"ledger_source": cfg.Providers.LedgerSource,
		"price_source":  cfg.Providers.PriceSource,
		"price_cache":   cfg.Cache.Enabled,
	}).Info("Savings metrics engine initialized")

	return a, nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
