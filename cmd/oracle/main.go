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
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"insight-oracle-go/internal/common"
	"insight-oracle-go/internal/config"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/workflow"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// consoleSigner drives the payment through the user's own wallet. It prints
// transfer instructions and waits for the user to paste the transaction hash
// after approving the transfer in their wallet. Typing "cancel" abandons the
// purchase before any money moves on our side of the flow.
type consoleSigner struct {
	tokenDecimals int32
	tokenAddress  string
}

func (s *consoleSigner) SubmitTransfer(ctx context.Context, recipient string, amountUnits int64) (string, error) {
	amount := decimal.New(amountUnits, -s.tokenDecimals)

	common.PrintHeader("Payment required", common.DefaultWidth)
	fmt.Printf("  Send    : %s USDC\n", amount.String())
	fmt.Printf("  Token   : %s\n", s.tokenAddress)
	fmt.Printf("  To      : %s\n", recipient)
	fmt.Println("\nApprove the transfer in your wallet, then paste the transaction hash.")
	fmt.Print("Transaction hash (or 'cancel'): ")

	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			lines <- readResult{line: strings.TrimSpace(scanner.Text())}
			return
		}
		err := scanner.Err()
		if err == nil {
			err = errors.New("input closed")
		}
		lines <- readResult{err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-lines:
		if result.err != nil {
			return "", result.err
		}
		if result.line == "" || strings.EqualFold(result.line, "cancel") {
			return "", errors.New("user rejected the transfer")
		}
		return result.line, nil
	}
}

func main() {
	query := flag.String("query", "", "The question to ask the oracle")
	category := flag.String("category", "general", "Insight category: crypto, market, business, technical, general")
	model := flag.String("model", "", "Model key from models.yaml (default: catalog default)")
	address := flag.String("address", "", "Your wallet address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *query == "" || *address == "" {
		fmt.Println("Usage: oracle -query \"...\" -address 0x... [-category crypto] [-model flash-2.5]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	signer := &consoleSigner{
		tokenDecimals: cfg.Chain.TokenDecimals,
		tokenAddress:  cfg.Chain.TokenAddress,
	}

	orchestrator := workflow.NewOrchestrator(
		services.Calculator,
		services.Ledger,
		signer,
		services.Watcher,
		services.Generator,
		cfg.Chain,
	)

	req := models.InsightRequest{
		Query:    *query,
		Category: models.Category(*category),
		Model:    *model,
		Address:  *address,
	}

	charge, err := orchestrator.Quote(ctx, req)
	if err != nil {
		zap.L().Fatal("Failed to price the query", zap.Error(err))
	}

	common.PrintHeader("Insight Oracle", common.DefaultWidth)
	fmt.Printf("  Query    : %s\n", req.Query)
	fmt.Printf("  Category : %s\n", req.Category)
	fmt.Printf("  Price    : %s USDC", charge.FinalAmount.String())
	if charge.DiscountApplied {
		fmt.Printf(" (referral discount, was %s)", charge.BaseAmount.String())
	}
	fmt.Println()

	delivered, err := orchestrator.Run(ctx, req)
	if err != nil {
		reportFailure(err)
		os.Exit(1)
	}

	common.PrintHeader("Insight", common.DefaultWidth)
	fmt.Println(delivered.Answer)
	common.PrintFooter(fmt.Sprintf("Model: %s | Cost: %s USDC | Tx: %s",
		delivered.Model, delivered.Cost.String(), delivered.TransactionId), common.DefaultWidth)
}

func reportFailure(err error) {
	switch {
	case errors.Is(err, workflow.ErrGenerationFailed):
		fmt.Println("\nYour payment confirmed but the insight could not be generated.")
		fmt.Println("Contact support with the transaction id below; no insight was charged twice.")
		fmt.Printf("Details: %v\n", err)
	case errors.Is(err, workflow.ErrPaymentFailed):
		fmt.Println("\nThe transfer failed on chain. You were not charged.")
		fmt.Printf("Details: %v\n", err)
	default:
		fmt.Printf("\nPurchase did not complete: %v\n", err)
	}
}
