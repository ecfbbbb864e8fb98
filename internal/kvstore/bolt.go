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

// Package kvstore is the BoltDB backend of the reward store. It exists so the
// orchestration layer can swap the SQLite service for an embedded key/value
// file without touching workflow logic; both backends satisfy store.RewardStore.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"

	bolt "github.com/boltdb/bolt"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.RewardStore.
var _ store.RewardStore = (*Service)(nil)

var (
	bucketAccounts  = []byte("reward_accounts")
	bucketCodeIndex = []byte("referral_code_index") // code -> address
	bucketReferrals = []byte("referrals")           // referred address -> code
	bucketInsights  = []byte("insights")            // nested: address -> seq -> insight
)

type Service struct {
	db *bolt.DB
}

// NewService opens (or creates) the Bolt database and ensures all buckets exist.
func NewService(path string) (*Service, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketCodeIndex, bucketReferrals, bucketInsights} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize buckets: %w", err)
	}

	zap.L().Info("Bolt reward store initialized", zap.String("file", path))
	return &Service{db: db}, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close bolt database", zap.Error(err))
	}
}

func (s *Service) GetOrCreateAccount(_ context.Context, address string) (*models.RewardAccount, error) {
	var account *models.RewardAccount
	err := s.db.Update(func(tx *bolt.Tx) error {
		existing, err := loadAccount(tx, address)
		if err == nil {
			account = existing
			return nil
		}
		if err != store.ErrAccountNotFound {
			return err
		}

		now := time.Now().UTC()
		account = &models.RewardAccount{
			Address:      address,
			ReferralCode: models.ReferralCodeForAddress(address),
			TotalEarned:  decimal.Zero,
			Tier:         models.TierBronze,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := saveAccount(tx, account); err != nil {
			return err
		}
		return tx.Bucket(bucketCodeIndex).Put([]byte(account.ReferralCode), []byte(address))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) GetAccountByCode(_ context.Context, code string) (*models.RewardAccount, error) {
	var account *models.RewardAccount
	err := s.db.View(func(tx *bolt.Tx) error {
		address := tx.Bucket(bucketCodeIndex).Get([]byte(code))
		if address == nil {
			return fmt.Errorf("%w: %s", store.ErrUnknownReferralCode, code)
		}
		loaded, err := loadAccount(tx, string(address))
		if err != nil {
			return err
		}
		account = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) CreditPoints(ctx context.Context, address string, points int64) (*models.RewardAccount, error) {
	if _, err := s.GetOrCreateAccount(ctx, address); err != nil {
		return nil, err
	}
	return s.mutateAccount(address, func(a *models.RewardAccount) {
		a.LoyaltyPoints += points
	})
}

func (s *Service) CreditReferrer(ctx context.Context, code string, cashback decimal.Decimal) (*models.RewardAccount, error) {
	referrer, err := s.GetAccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.mutateAccount(referrer.Address, func(a *models.RewardAccount) {
		a.ReferralCount++
		a.TotalEarned = a.TotalEarned.Add(cashback)
	})
}

func (s *Service) ResetAccount(_ context.Context, address string) error {
	_, err := s.mutateAccount(address, func(a *models.RewardAccount) {
		a.ReferralCount = 0
		a.TotalEarned = decimal.Zero
		a.LoyaltyPoints = 0
	})
	return err
}

func (s *Service) RecordReferral(_ context.Context, referredAddress, code string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketReferrals)
		if existing := bucket.Get([]byte(referredAddress)); existing != nil {
			return fmt.Errorf("%w: %s", store.ErrReferralExists, referredAddress)
		}
		return bucket.Put([]byte(referredAddress), []byte(code))
	})
}

func (s *Service) ReferredBy(_ context.Context, referredAddress string) (string, error) {
	var code string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketReferrals).Get([]byte(referredAddress)); v != nil {
			code = string(v)
		}
		return nil
	})
	return code, err
}

func (s *Service) AppendInsight(_ context.Context, insight models.Insight) error {
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bucketInsights)
		bucket, err := parent.CreateBucketIfNotExists([]byte(insight.Address))
		if err != nil {
			return err
		}

		// Dedup on transaction id across the address bucket.
		var duplicate bool
		if err := bucket.ForEach(func(_, v []byte) error {
			var existing models.Insight
			if err := json.Unmarshal(v, &existing); err != nil {
				return err
			}
			if existing.TransactionId == insight.TransactionId {
				duplicate = true
			}
			return nil
		}); err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("%w: transaction_id %s already recorded", store.ErrDuplicateTransaction, insight.TransactionId)
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(insight)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), data)
	})
}

func (s *Service) ListInsights(_ context.Context, address string, limit, offset int) ([]models.Insight, error) {
	var insights []models.Insight
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketInsights).Bucket([]byte(address))
		if bucket == nil {
			return nil
		}

		// Walk backwards: higher sequence numbers are newer.
		cursor := bucket.Cursor()
		skipped := 0
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(insights) >= limit {
				break
			}
			var insight models.Insight
			if err := json.Unmarshal(v, &insight); err != nil {
				return err
			}
			insights = append(insights, insight)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insights, nil
}

func (s *Service) ClearInsights(_ context.Context, address string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bucketInsights)
		if parent.Bucket([]byte(address)) == nil {
			return nil
		}
		return parent.DeleteBucket([]byte(address))
	})
}

func (s *Service) mutateAccount(address string, mutate func(*models.RewardAccount)) (*models.RewardAccount, error) {
	var account *models.RewardAccount
	err := s.db.Update(func(tx *bolt.Tx) error {
		loaded, err := loadAccount(tx, address)
		if err != nil {
			return err
		}
		mutate(loaded)
		loaded.Tier = models.TierForPoints(loaded.LoyaltyPoints)
		loaded.UpdatedAt = time.Now().UTC()
		if err := saveAccount(tx, loaded); err != nil {
			return err
		}
		account = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func loadAccount(tx *bolt.Tx, address string) (*models.RewardAccount, error) {
	data := tx.Bucket(bucketAccounts).Get([]byte(address))
	if data == nil {
		return nil, store.ErrAccountNotFound
	}
	var account models.RewardAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", address, err)
	}
	return &account, nil
}

func saveAccount(tx *bolt.Tx, account *models.RewardAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", account.Address, err)
	}
	return tx.Bucket(bucketAccounts).Put([]byte(account.Address), data)
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}
