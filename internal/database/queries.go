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

const (
	// Reward account queries
	queryGetAccount = `
		SELECT address, referral_code, referral_count, total_earned, loyalty_points, tier, created_at, updated_at
		FROM reward_accounts
		WHERE address = ?`

	queryGetAccountByCode = `
		SELECT address, referral_code, referral_count, total_earned, loyalty_points, tier, created_at, updated_at
		FROM reward_accounts
		WHERE referral_code = ?`

	queryInsertAccount = `
		INSERT INTO reward_accounts (address, referral_code)
		VALUES (?, ?)
		RETURNING address, referral_code, referral_count, total_earned, loyalty_points, tier, created_at, updated_at`

	queryGetAccountForUpdate = `
		SELECT referral_count, total_earned, loyalty_points, version
		FROM reward_accounts
		WHERE address = ?`

	queryUpdateAccount = `
		UPDATE reward_accounts
		SET referral_count = ?, total_earned = ?, loyalty_points = ?, tier = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE address = ? AND version = ?`

	queryResetAccount = `
		UPDATE reward_accounts
		SET referral_count = 0, total_earned = '0', loyalty_points = 0, tier = 'bronze',
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE address = ?`

	// Referral queries
	queryInsertReferral = `
		INSERT OR IGNORE INTO referrals (referred_address, referral_code) VALUES (?, ?)`

	queryGetReferral = `
		SELECT referral_code FROM referrals WHERE referred_address = ?`

	// Insight queries
	queryCheckDuplicateInsight = `
		SELECT id FROM insights WHERE transaction_id = ? LIMIT 1`

	queryInsertInsight = `
		INSERT INTO insights (id, address, query, category, model, answer, cost, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryListInsights = `
		SELECT id, address, query, category, model, answer, cost, transaction_id, created_at
		FROM insights
		WHERE address = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	queryClearInsights = `
		DELETE FROM insights WHERE address = ?`
)
