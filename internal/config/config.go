/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"insight-oracle-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getEnvDuration("WATCHER_POLL_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, err
	}

	confirmTimeout, err := getEnvDuration("WATCHER_CONFIRM_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cleanupWindow, err := getEnvDuration("WATCHER_CLEANUP_WINDOW", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	quoteTtl, err := getEnvDuration("QUOTE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	minAmount, err := getEnvDecimal("PRICE_MIN", decimal.RequireFromString("0.01"))
	if err != nil {
		return nil, err
	}

	maxAmount, err := getEnvDecimal("PRICE_MAX", decimal.RequireFromString("1.00"))
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "oracle.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Rewards: models.RewardsConfig{
			Backend:  getEnvString("REWARDS_BACKEND", "sqlite"),
			BoltPath: getEnvString("BOLT_PATH", "rewards.bolt"),
		},
		Chain: models.ChainConfig{
			RpcUrl:           getEnvString("CHAIN_RPC_URL", "http://localhost:8545"),
			TokenAddress:     getEnvString("USDC_CONTRACT_ADDRESS", ""),
			TokenDecimals:    int32(getEnvInt("USDC_DECIMALS", 6)),
			RecipientAddress: getEnvString("PAYMENT_RECEIVER_ADDRESS", ""),
		},
		Watcher: models.WatcherConfig{
			PollInterval:   pollInterval,
			ConfirmTimeout: confirmTimeout,
			CleanupWindow:  cleanupWindow,
		},
		Generation: models.GenerationConfig{
			ApiKey:     getEnvString("GEMINI_API_KEY", ""),
			BaseUrl:    getEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			ModelsFile: getEnvString("MODELS_FILE", "models.yaml"),
		},
		Pricing: models.PricingConfig{
			Strategy:  getEnvString("PRICING_STRATEGY", "category"),
			MinAmount: minAmount,
			MaxAmount: maxAmount,
			QuoteTtl:  quoteTtl,
		},
		Server: models.ServerConfig{
			ListenAddr:      getEnvString("SERVER_LISTEN_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}
