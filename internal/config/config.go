// Package config provides configuration management for the savings metrics service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider source selectors
const (
	SourceHTTP       = "http"
	SourcePostgres   = "postgres"
	SourceClickHouse = "clickhouse"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Protocols ProtocolsConfig
	Providers ProvidersConfig
	Chain     ChainConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ProtocolsConfig identifies each protocol's assets in the ledger
type ProtocolsConfig struct {
	LendingSymbol        string   // pool-share lending deposit asset
	SyntheticSymbols     []string // every alias of the synthetic asset
	SyntheticPriceSymbol string   // symbol quoted by the price oracle
}

// ProvidersConfig selects and configures the upstream data sources
type ProvidersConfig struct {
	LedgerSource           string // http or postgres
	LedgerURL              string
	LendingURL             string
	PriceSource            string // http or clickhouse
	PriceOracleURL         string
	PriceOracleRPS         int
	PriceLookupConcurrency int
	RequestTimeout         time.Duration
	MaxRetries             int
}

// ChainConfig holds the RPC settings used to read synthetic asset balances
type ChainConfig struct {
	RPCURL                 string
	SyntheticTokenAddress  string
	SyntheticTokenDecimals int
	RPCBudgetPerSecond     int // calls/s shared by all replicas via Redis; 0 disables
}

// CacheConfig holds price cache configuration
type CacheConfig struct {
	Enabled         bool
	PriceTTL        time.Duration
	CurrentPriceTTL time.Duration
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; variables may be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "savings"),
				User:           getEnv("POSTGRES_USER", "savings"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "savings"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Protocols: ProtocolsConfig{
			LendingSymbol:        getEnv("LENDING_ASSET_SYMBOL", "USDC"),
			SyntheticSymbols:     getEnvAsList("SYNTHETIC_ASSET_SYMBOLS", []string{"USDY", "rUSDY"}),
			SyntheticPriceSymbol: getEnv("SYNTHETIC_PRICE_SYMBOL", "USDY"),
		},
		Providers: ProvidersConfig{
			LedgerSource:           strings.ToLower(getEnv("LEDGER_SOURCE", SourceHTTP)),
			LedgerURL:              getEnv("LEDGER_API_URL", ""),
			LendingURL:             getEnv("LENDING_API_URL", ""),
			PriceSource:            strings.ToLower(getEnv("PRICE_SOURCE", SourceHTTP)),
			PriceOracleURL:         getEnv("PRICE_ORACLE_URL", ""),
			PriceOracleRPS:         getEnvAsInt("PRICE_ORACLE_RPS", 20),
			PriceLookupConcurrency: getEnvAsInt("PRICE_LOOKUP_CONCURRENCY", 8),
			RequestTimeout:         getEnvAsDuration("PROVIDER_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:             getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
		},
		Chain: ChainConfig{
			RPCURL:                 getEnv("CHAIN_RPC_URL", ""),
			SyntheticTokenAddress:  getEnv("SYNTHETIC_TOKEN_ADDRESS", ""),
			SyntheticTokenDecimals: getEnvAsInt("SYNTHETIC_TOKEN_DECIMALS", 18),
			RPCBudgetPerSecond:     getEnvAsInt("CHAIN_RPC_BUDGET_PER_SECOND", 0),
		},
		Cache: CacheConfig{
			Enabled:         getEnvAsBool("PRICE_CACHE_ENABLED", true),
			PriceTTL:        getEnvAsDuration("PRICE_CACHE_TTL", 24*time.Hour),
			CurrentPriceTTL: getEnvAsDuration("CURRENT_PRICE_CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks that the selected provider sources are fully configured
func (c *Config) Validate() error {
	switch c.Providers.LedgerSource {
	case SourceHTTP:
		if c.Providers.LedgerURL == "" {
			return fmt.Errorf("LEDGER_API_URL is required when LEDGER_SOURCE=%s", SourceHTTP)
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("unknown LEDGER_SOURCE %q", c.Providers.LedgerSource)
	}

	switch c.Providers.PriceSource {
	case SourceHTTP:
		if c.Providers.PriceOracleURL == "" {
			return fmt.Errorf("PRICE_ORACLE_URL is required when PRICE_SOURCE=%s", SourceHTTP)
		}
	case SourceClickHouse:
	default:
		return fmt.Errorf("unknown PRICE_SOURCE %q", c.Providers.PriceSource)
	}

	if c.Providers.LendingURL == "" {
		return fmt.Errorf("LENDING_API_URL is required")
	}
	if c.Chain.RPCURL == "" || c.Chain.SyntheticTokenAddress == "" {
		return fmt.Errorf("CHAIN_RPC_URL and SYNTHETIC_TOKEN_ADDRESS are required")
	}
	if c.Protocols.LendingSymbol == "" || len(c.Protocols.SyntheticSymbols) == 0 {
		return fmt.Errorf("protocol asset symbols must not be empty")
	}
	if c.Providers.PriceLookupConcurrency < 1 {
		return fmt.Errorf("PRICE_LOOKUP_CONCURRENCY must be at least 1")
	}
	if c.Chain.RPCBudgetPerSecond < 0 {
		return fmt.Errorf("CHAIN_RPC_BUDGET_PER_SECOND cannot be negative")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList gets a comma-separated environment variable with a default value
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
