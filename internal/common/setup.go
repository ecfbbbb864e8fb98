package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"insight-oracle-go/internal/chain"
	"insight-oracle-go/internal/database"
	"insight-oracle-go/internal/insight"
	"insight-oracle-go/internal/kvstore"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/pricing"
	"insight-oracle-go/internal/rewards"
	"insight-oracle-go/internal/store"
	"insight-oracle-go/internal/watcher"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	RewardStore store.RewardStore
	Ledger      *rewards.Ledger
	ChainClient *chain.Client
	Watcher     *watcher.Watcher
	Generator   *insight.Generator
	Calculator  *pricing.Calculator
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	rewardStore, err := initializeRewardStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(cfg.Chain.RpcUrl)
	if err != nil {
		rewardStore.Close()
		return nil, err
	}

	zap.L().Info("Loading model catalog", zap.String("file", cfg.Generation.ModelsFile))
	catalog, err := insight.LoadCatalog(cfg.Generation.ModelsFile)
	if err != nil {
		rewardStore.Close()
		return nil, err
	}

	generator, err := insight.NewGenerator(cfg.Generation, catalog)
	if err != nil {
		rewardStore.Close()
		return nil, err
	}

	strategy := pricing.StrategyByName(cfg.Pricing.Strategy)
	zap.L().Info("Using pricing strategy", zap.String("strategy", strategy.Name()))

	return &Services{
		RewardStore: rewardStore,
		Ledger:      rewards.NewLedger(rewardStore),
		ChainClient: chainClient,
		Watcher:     watcher.New(chainClient, cfg.Watcher),
		Generator:   generator,
		Calculator:  pricing.NewCalculator(strategy, cfg.Pricing),
	}, nil
}

// InitializeRewardsOnly initializes just the reward store and ledger without
// the chain or generation clients. Useful for read-only operations like
// inspecting accounts.
func InitializeRewardsOnly(ctx context.Context, cfg *models.Config) (store.RewardStore, *rewards.Ledger, error) {
	rewardStore, err := initializeRewardStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return rewardStore, rewards.NewLedger(rewardStore), nil
}

func initializeRewardStore(ctx context.Context, cfg *models.Config) (store.RewardStore, error) {
	switch cfg.Rewards.Backend {
	case "bolt":
		return kvstore.NewService(cfg.Rewards.BoltPath)
	case "sqlite", "":
		return database.NewService(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown rewards backend: %s (expected sqlite or bolt)", cfg.Rewards.Backend)
	}
}

func (cs *Services) Close() {
	if cs.RewardStore != nil {
		cs.RewardStore.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
