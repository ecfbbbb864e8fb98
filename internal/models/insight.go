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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category identifies a fixed insight category.
type Category string

const (
	CategoryCrypto    Category = "crypto"
	CategoryMarket    Category = "market"
	CategoryBusiness  Category = "business"
	CategoryTechnical Category = "technical"
	CategoryGeneral   Category = "general"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryCrypto,
	CategoryMarket,
	CategoryBusiness,
	CategoryTechnical,
	CategoryGeneral,
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// InsightRequest is what the user submits. Immutable once a payment is in flight.
type InsightRequest struct {
	Query    string   `json:"query"`
	Category Category `json:"category"`
	Model    string   `json:"model"`
	Address  string   `json:"address"`
}

// Charge is the priced result of a quote.
type Charge struct {
	BaseAmount      decimal.Decimal `json:"base_amount"`
	DiscountApplied bool            `json:"discount_applied"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
}

// PendingPayment tracks a submitted transfer awaiting confirmation.
// At most one is live per workflow instance.
type PendingPayment struct {
	TransactionId string   `json:"transaction_id"`
	Charge        Charge   `json:"charge"`
	Query         string   `json:"query"`
	Category      Category `json:"category"`
	Model         string   `json:"model"`
	Address       string   `json:"address"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Insight is the delivered answer. Created only after a confirmed payment and a
// successful generation call; appended most-recent-first to history.
type Insight struct {
	Id            string          `json:"id"`
	Address       string          `json:"address"`
	Query         string          `json:"query"`
	Category      Category        `json:"category"`
	Model         string          `json:"model"`
	Answer        string          `json:"answer"`
	Cost          decimal.Decimal `json:"cost"`
	TransactionId string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
