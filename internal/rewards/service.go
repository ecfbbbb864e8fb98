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

package rewards

import (
	"context"
	"errors"

	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Referrers earn 10% of every payment made by their referred users.
var cashbackRate = decimal.RequireFromString("0.10")

// Loyalty points accrue at 1 point per cent spent.
var pointsPerUnit = decimal.NewFromInt(100)

// Ledger is the reward bookkeeping service. It owns all mutations of reward
// accounts and referral links; the storage backend is injected.
type Ledger struct {
	store store.RewardStore
}

func NewLedger(s store.RewardStore) *Ledger {
	return &Ledger{store: s}
}

// GetOrCreate returns the account for an address, creating it lazily with zero
// values on first observation.
func (l *Ledger) GetOrCreate(ctx context.Context, address string) (*models.RewardAccount, error) {
	return l.store.GetOrCreateAccount(ctx, address)
}

// RecordReferral links a referred address to a referrer's code. First seen
// wins; a later visit with a different code is silently ignored.
func (l *Ledger) RecordReferral(ctx context.Context, referredAddress, code string) error {
	err := l.store.RecordReferral(ctx, referredAddress, code)
	if errors.Is(err, store.ErrReferralExists) {
		zap.L().Debug("Referral already recorded, keeping first code",
			zap.String("referred_address", referredAddress),
			zap.String("ignored_code", code))
		return nil
	}
	return err
}

// AccountByCode resolves a referral code to its owning account. Returns
// store.ErrUnknownReferralCode if nobody owns the code.
func (l *Ledger) AccountByCode(ctx context.Context, code string) (*models.RewardAccount, error) {
	return l.store.GetAccountByCode(ctx, code)
}

// HasReferralDiscount reports whether an address was referred and therefore
// pays the discounted price.
func (l *Ledger) HasReferralDiscount(ctx context.Context, address string) (bool, error) {
	code, err := l.store.ReferredBy(ctx, address)
	if err != nil {
		return false, err
	}
	return code != "", nil
}

// PointsForAmount converts a charge into loyalty points:
// floor(amount in minor units), 1 point per cent.
func PointsForAmount(amount decimal.Decimal) int64 {
	return amount.Mul(pointsPerUnit).Floor().IntPart()
}

// SettleInsight runs all bookkeeping for a completed, paid insight: the insight
// is appended to history, the payer earns points, and the referrer (if any)
// earns cashback. The history append is the one step whose failure is
// propagated, because it carries the dedup guarantee; pure reward bookkeeping
// failures are logged and swallowed so they can never block a delivery the
// user already paid for.
func (l *Ledger) SettleInsight(ctx context.Context, insight models.Insight) error {
	if err := l.store.AppendInsight(ctx, insight); err != nil {
		return err
	}

	points := PointsForAmount(insight.Cost)
	if _, err := l.store.CreditPoints(ctx, insight.Address, points); err != nil {
		zap.L().Error("Failed to credit loyalty points",
			zap.String("address", insight.Address),
			zap.Int64("points", points),
			zap.Error(err))
	}

	code, err := l.store.ReferredBy(ctx, insight.Address)
	if err != nil {
		zap.L().Error("Failed to look up referrer",
			zap.String("address", insight.Address),
			zap.Error(err))
		return nil
	}
	if code == "" {
		return nil
	}

	cashback := insight.Cost.Mul(cashbackRate).Round(2)
	if _, err := l.store.CreditReferrer(ctx, code, cashback); err != nil {
		zap.L().Error("Failed to credit referrer",
			zap.String("referral_code", code),
			zap.String("cashback", cashback.String()),
			zap.Error(err))
	}

	return nil
}

// History returns the insight history for an address, most recent first.
func (l *Ledger) History(ctx context.Context, address string, limit, offset int) ([]models.Insight, error) {
	return l.store.ListInsights(ctx, address, limit, offset)
}

// ClearHistory deletes the insight history for an address.
func (l *Ledger) ClearHistory(ctx context.Context, address string) error {
	return l.store.ClearInsights(ctx, address)
}

// Reset zeroes an account's points, tier, referral stats and earnings.
// Explicit demo/user action only.
func (l *Ledger) Reset(ctx context.Context, address string) error {
	return l.store.ResetAccount(ctx, address)
}
