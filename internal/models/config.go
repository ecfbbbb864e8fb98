package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Rewards    RewardsConfig
	Chain      ChainConfig
	Watcher    WatcherConfig
	Generation GenerationConfig
	Pricing    PricingConfig
	Server     ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// RewardsConfig selects the reward ledger backend
type RewardsConfig struct {
	Backend  string // "sqlite" or "bolt"
	BoltPath string
}

// ChainConfig holds testnet RPC and token settings
type ChainConfig struct {
	RpcUrl           string
	TokenAddress     string
	TokenDecimals    int32
	RecipientAddress string
}

// WatcherConfig holds confirmation watcher settings
type WatcherConfig struct {
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	CleanupWindow  time.Duration
}

// GenerationConfig holds generation provider settings
type GenerationConfig struct {
	ApiKey     string
	BaseUrl    string
	ModelsFile string
}

// PricingConfig holds pricing strategy settings
type PricingConfig struct {
	Strategy  string // "category" or "length"
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	QuoteTtl  time.Duration
}

// ServerConfig holds API server settings
type ServerConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}
