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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetOrCreateAccount returns the reward account for an address, creating it with
// zero values and a derived referral code on first observation.
func (s *Service) GetOrCreateAccount(ctx context.Context, address string) (*models.RewardAccount, error) {
	account, err := s.scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, address))
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get reward account: %w", err)
	}

	code := models.ReferralCodeForAddress(address)
	account, err = s.scanAccount(s.db.QueryRowContext(ctx, queryInsertAccount, address, code))
	if err != nil {
		return nil, fmt.Errorf("failed to create reward account: %w", err)
	}

	zap.L().Info("Reward account created",
		zap.String("address", address),
		zap.String("referral_code", code))
	return account, nil
}

// GetAccountByCode resolves an account through the code index.
func (s *Service) GetAccountByCode(ctx context.Context, code string) (*models.RewardAccount, error) {
	account, err := s.scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByCode, code))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownReferralCode, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by code: %w", err)
	}
	return account, nil
}

// CreditPoints adds loyalty points to an account and recomputes the tier in the
// same write. Creates the account first if it does not exist yet.
func (s *Service) CreditPoints(ctx context.Context, address string, points int64) (*models.RewardAccount, error) {
	if _, err := s.GetOrCreateAccount(ctx, address); err != nil {
		return nil, err
	}

	err := s.mutateAccount(ctx, address, func(a *accountState) {
		a.loyaltyPoints += points
	})
	if err != nil {
		return nil, err
	}

	account, err := s.scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, address))
	if err != nil {
		return nil, fmt.Errorf("failed to reload account: %w", err)
	}

	zap.L().Info("Loyalty points credited",
		zap.String("address", address),
		zap.Int64("points_added", points),
		zap.Int64("total_points", account.LoyaltyPoints),
		zap.String("tier", string(account.Tier)))
	return account, nil
}

// CreditReferrer adds cashback to the account owning the referral code and
// increments its referral count.
func (s *Service) CreditReferrer(ctx context.Context, code string, cashback decimal.Decimal) (*models.RewardAccount, error) {
	referrer, err := s.GetAccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	err = s.mutateAccount(ctx, referrer.Address, func(a *accountState) {
		a.referralCount++
		a.totalEarned = a.totalEarned.Add(cashback)
	})
	if err != nil {
		return nil, err
	}

	account, err := s.scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, referrer.Address))
	if err != nil {
		return nil, fmt.Errorf("failed to reload referrer account: %w", err)
	}

	zap.L().Info("Referrer credited",
		zap.String("referral_code", code),
		zap.String("referrer_address", referrer.Address),
		zap.String("cashback", cashback.String()),
		zap.String("total_earned", account.TotalEarned.String()))
	return account, nil
}

// ResetAccount zeroes points, tier, referral stats and earnings. Explicit
// user/demo action only; nothing in the workflow calls this automatically.
func (s *Service) ResetAccount(ctx context.Context, address string) error {
	result, err := s.db.ExecContext(ctx, queryResetAccount, address)
	if err != nil {
		return fmt.Errorf("failed to reset account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", store.ErrAccountNotFound, address)
	}

	zap.L().Info("Reward account reset", zap.String("address", address))
	return nil
}

// accountState is the mutable slice of a reward account row.
type accountState struct {
	referralCount int64
	totalEarned   decimal.Decimal
	loyaltyPoints int64
}

// mutateAccount runs a read-modify-write on one account row inside a database
// transaction, with optimistic locking on the row version. The tier is always
// recomputed from the resulting points.
func (s *Service) mutateAccount(ctx context.Context, address string, mutate func(*accountState)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var state accountState
	var totalEarnedStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetAccountForUpdate, address).
		Scan(&state.referralCount, &totalEarnedStr, &state.loyaltyPoints, &version)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", store.ErrAccountNotFound, address)
	}
	if err != nil {
		return fmt.Errorf("failed to read account for update: %w", err)
	}

	state.totalEarned, err = decimal.NewFromString(totalEarnedStr)
	if err != nil {
		return fmt.Errorf("failed to parse total_earned '%s': %w", totalEarnedStr, err)
	}

	mutate(&state)

	tier := models.TierForPoints(state.loyaltyPoints)
	result, err := tx.ExecContext(ctx, queryUpdateAccount,
		state.referralCount, state.totalEarned.String(), state.loyaltyPoints, string(tier),
		address, version)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account update failed: concurrent modification detected")
	}

	return tx.Commit()
}

func (s *Service) scanAccount(row *sql.Row) (*models.RewardAccount, error) {
	var account models.RewardAccount
	var totalEarnedStr, tierStr string
	err := row.Scan(&account.Address, &account.ReferralCode, &account.ReferralCount,
		&totalEarnedStr, &account.LoyaltyPoints, &tierStr,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.TotalEarned, err = decimal.NewFromString(totalEarnedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_earned '%s': %w", totalEarnedStr, err)
	}
	account.Tier = models.Tier(tierStr)
	return &account, nil
}
