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

// QuoteRequest asks for a price before paying.
type QuoteRequest struct {
	Query    string   `json:"query"`
	Category Category `json:"category"`
	Address  string   `json:"address,omitempty"`
}

// QuoteResponse carries the priced offer back to the caller.
type QuoteResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Recipient string          `json:"recipient"`
	PaymentId string          `json:"payment_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Query     string          `json:"query"`
	Category  Category        `json:"category"`
}

// OracleRequest is the generation request made after the payment confirmed.
type OracleRequest struct {
	Query         string   `json:"query"`
	Category      Category `json:"category"`
	Model         string   `json:"model"`
	Address       string   `json:"address"`
	TransactionId string   `json:"transaction_id"`
}

// OracleResponse echoes the effective model and price alongside the answer.
// The model may legitimately differ from the one requested when fallbacks fired.
type OracleResponse struct {
	Insight   string          `json:"insight"`
	Model     string          `json:"model"`
	ModelId   string          `json:"model_id"`
	Price     decimal.Decimal `json:"price"`
	Category  Category        `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// ErrorResponse is the error payload for API handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
