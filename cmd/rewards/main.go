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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"insight-oracle-go/internal/common"
	"insight-oracle-go/internal/config"
	"insight-oracle-go/internal/models"

	"go.uber.org/zap"
)

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 10 {
		return txId[:10] + "..."
	}
	return txId
}

func printAccount(account *models.RewardAccount) {
	common.PrintHeader(fmt.Sprintf("Reward account: %s", account.Address), common.DefaultWidth)
	fmt.Printf("  Referral code  : %s\n", account.ReferralCode)
	fmt.Printf("  Referrals      : %d\n", account.ReferralCount)
	fmt.Printf("  Total earned   : %s USDC\n", account.TotalEarned.String())
	fmt.Printf("  Loyalty points : %d\n", account.LoyaltyPoints)
	fmt.Printf("  Tier           : %s\n", account.Tier)
	fmt.Printf("  Updated        : %s\n", account.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printHistory(insights []models.Insight) {
	if len(insights) == 0 {
		fmt.Println("\nNo insights purchased yet.")
		return
	}

	fmt.Printf("\n┌─ Insight history (%d, most recent first)\n", len(insights))
	for i, entry := range insights {
		isLast := i == len(insights)-1
		fmt.Printf("%s %s [%s] %s\n",
			common.BoxPrefix(isLast),
			entry.CreatedAt.Format("2006-01-02 15:04"),
			entry.Category,
			entry.Query)
		fmt.Printf("%s   cost: %s USDC, model: %s, tx: %s\n",
			common.BoxDetailPrefix(isLast),
			entry.Cost.String(),
			entry.Model,
			formatTransactionId(entry.TransactionId))
	}
}

func main() {
	address := flag.String("address", "", "Wallet address to inspect")
	history := flag.Bool("history", false, "Show insight purchase history")
	historyLimit := flag.Int("limit", 20, "Max history entries to show")
	reset := flag.Bool("reset", false, "Reset the account's points, tier and earnings")
	clear := flag.Bool("clear-history", false, "Delete the account's insight history")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *address == "" {
		fmt.Println("Usage: rewards -address 0x... [-history] [-reset] [-clear-history]")
		os.Exit(1)
	}

	ctx := context.Background()

	rewardStore, ledger, err := common.InitializeRewardsOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize reward store", zap.Error(err))
	}
	defer rewardStore.Close()

	if *reset {
		if err := ledger.Reset(ctx, *address); err != nil {
			zap.L().Fatal("Failed to reset account", zap.Error(err))
		}
		fmt.Println("Account reset.")
	}

	if *clear {
		if err := ledger.ClearHistory(ctx, *address); err != nil {
			zap.L().Fatal("Failed to clear history", zap.Error(err))
		}
		fmt.Println("History cleared.")
	}

	account, err := ledger.GetOrCreate(ctx, *address)
	if err != nil {
		zap.L().Fatal("Failed to load account", zap.Error(err))
	}
	printAccount(account)

	if *history {
		insights, err := ledger.History(ctx, *address, *historyLimit, 0)
		if err != nil {
			zap.L().Fatal("Failed to load history", zap.Error(err))
		}
		printHistory(insights)
	}

	fmt.Println()
}
