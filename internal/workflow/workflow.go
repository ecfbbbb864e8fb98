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

// Package workflow drives a single insight purchase end to end: price the
// query, submit the payment, wait for on-chain confirmation, generate the
// answer, and settle rewards. One purchase runs at a time per orchestrator.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"insight-oracle-go/internal/chain"
	"insight-oracle-go/internal/insight"
	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/pricing"
	"insight-oracle-go/internal/rewards"
	"insight-oracle-go/internal/watcher"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the orchestrator's observable phase.
type State string

const (
	StateIdle                 State = "idle"
	StateSubmittingPayment    State = "submitting_payment"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateGenerating           State = "generating"
)

var (
	// ErrBusy rejects a new request while a payment or generation is in
	// flight. A second concurrent payment for the same user is never started.
	ErrBusy = errors.New("an insight request is already in progress")

	// ErrInvalidInput rejects a request before any money moves.
	ErrInvalidInput = errors.New("invalid insight request")

	// ErrPaymentFailed means the transfer reached the chain and failed there.
	// No insight is owed; the user was not charged.
	ErrPaymentFailed = errors.New("payment failed on chain")

	// ErrGenerationFailed means the payment confirmed but no model produced an
	// answer. The user HAS paid; the error carries the transaction id so
	// support can resolve it. Reward bookkeeping is not run.
	ErrGenerationFailed = errors.New("generation failed after confirmed payment")
)

// Orchestrator runs the pay-then-generate state machine. All collaborators are
// injected; the orchestrator owns only sequencing and the busy guard.
type Orchestrator struct {
	calculator *pricing.Calculator
	ledger     *rewards.Ledger
	signer     chain.TransferSigner
	watcher    *watcher.Watcher
	generator  *insight.Generator
	chainCfg   models.ChainConfig

	mutex   sync.Mutex
	state   State
	pending *models.PendingPayment
}

func NewOrchestrator(
	calculator *pricing.Calculator,
	ledger *rewards.Ledger,
	signer chain.TransferSigner,
	w *watcher.Watcher,
	generator *insight.Generator,
	chainCfg models.ChainConfig,
) *Orchestrator {
	return &Orchestrator{
		calculator: calculator,
		ledger:     ledger,
		signer:     signer,
		watcher:    w,
		generator:  generator,
		chainCfg:   chainCfg,
		state:      StateIdle,
	}
}

// Status returns the current phase and, while a payment is awaiting
// confirmation or generating, a copy of the pending payment.
func (o *Orchestrator) Status() (State, *models.PendingPayment) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.pending == nil {
		return o.state, nil
	}
	pending := *o.pending
	return o.state, &pending
}

// Quote prices a request without starting a payment. Safe to call at any time,
// including while a purchase is in flight.
func (o *Orchestrator) Quote(ctx context.Context, req models.InsightRequest) (models.Charge, error) {
	if err := validate(req); err != nil {
		return models.Charge{}, err
	}

	discount, err := o.ledger.HasReferralDiscount(ctx, req.Address)
	if err != nil {
		zap.L().Warn("Failed to check referral discount, quoting full price",
			zap.String("address", req.Address),
			zap.Error(err))
		discount = false
	}

	return o.calculator.Quote(req.Query, req.Category, discount), nil
}

// Run executes one full purchase. It returns the delivered insight, or an
// error from the taxonomy above. The request is immutable once the payment is
// submitted: the answer is generated from the query as priced, even if the
// caller changes their input meanwhile.
func (o *Orchestrator) Run(ctx context.Context, req models.InsightRequest) (*models.Insight, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.finish()

	charge, err := o.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Starting insight purchase",
		zap.String("address", req.Address),
		zap.String("category", string(req.Category)),
		zap.String("amount", charge.FinalAmount.String()),
		zap.Bool("discount_applied", charge.DiscountApplied))

	txId, err := o.submitPayment(ctx, req, charge)
	if err != nil {
		return nil, err
	}

	if err := o.awaitConfirmation(ctx, txId); err != nil {
		return nil, err
	}

	return o.generateAndSettle(ctx, txId)
}

func validate(req models.InsightRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if req.Address == "" {
		return fmt.Errorf("%w: wallet address is required", ErrInvalidInput)
	}
	return nil
}

// begin transitions Idle -> SubmittingPayment, or rejects with ErrBusy.
func (o *Orchestrator) begin() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.state != StateIdle {
		return fmt.Errorf("%w: state is %s", ErrBusy, o.state)
	}
	o.state = StateSubmittingPayment
	return nil
}

func (o *Orchestrator) finish() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.state = StateIdle
	o.pending = nil
}

func (o *Orchestrator) setState(state State, pending *models.PendingPayment) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.state = state
	if pending != nil {
		o.pending = pending
	}
}

func (o *Orchestrator) submitPayment(ctx context.Context, req models.InsightRequest, charge models.Charge) (string, error) {
	amountUnits := chain.Quantize(charge.FinalAmount, o.chainCfg.TokenDecimals)

	txId, err := o.signer.SubmitTransfer(ctx, o.chainCfg.RecipientAddress, amountUnits)
	if err != nil {
		classified := chain.ClassifySigningError(err)
		zap.L().Warn("Payment submission did not complete",
			zap.String("address", req.Address),
			zap.Error(classified))
		return "", classified
	}

	o.setState(StateAwaitingConfirmation, &models.PendingPayment{
		TransactionId: txId,
		Charge:        charge,
		Query:         req.Query,
		Category:      req.Category,
		Model:         req.Model,
		Address:       req.Address,
		SubmittedAt:   time.Now().UTC(),
	})

	zap.L().Info("Payment submitted",
		zap.String("transaction_id", txId),
		zap.Int64("amount_units", amountUnits))
	return txId, nil
}

func (o *Orchestrator) awaitConfirmation(ctx context.Context, txId string) error {
	status, err := o.watcher.Await(ctx, txId)
	if err != nil {
		return fmt.Errorf("confirmation of %s did not complete: %w", txId, err)
	}
	if status != chain.StatusSucceeded {
		return fmt.Errorf("%w: transaction %s", ErrPaymentFailed, txId)
	}
	return nil
}

func (o *Orchestrator) generateAndSettle(ctx context.Context, txId string) (*models.Insight, error) {
	o.setState(StateGenerating, nil)

	o.mutex.Lock()
	pending := *o.pending
	o.mutex.Unlock()

	result, err := o.generator.Generate(ctx, pending.Query, pending.Category, pending.Model)
	if err != nil {
		zap.L().Error("Generation failed after confirmed payment",
			zap.String("transaction_id", txId),
			zap.String("address", pending.Address),
			zap.Error(err))
		return nil, fmt.Errorf("%w (transaction %s): %w", ErrGenerationFailed, txId, err)
	}

	delivered := models.Insight{
		Id:            uuid.New().String(),
		Address:       pending.Address,
		Query:         pending.Query,
		Category:      pending.Category,
		Model:         result.EffectiveModelId,
		Answer:        result.Answer,
		Cost:          pending.Charge.FinalAmount,
		TransactionId: txId,
		CreatedAt:     time.Now().UTC(),
	}

	if err := o.ledger.SettleInsight(ctx, delivered); err != nil {
		return nil, fmt.Errorf("failed to settle insight for transaction %s: %w", txId, err)
	}

	zap.L().Info("Insight delivered",
		zap.String("insight_id", delivered.Id),
		zap.String("transaction_id", txId),
		zap.String("effective_model_id", result.EffectiveModelId))
	return &delivered, nil
}
