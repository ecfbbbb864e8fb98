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

package pricing

import (
	"strings"

	"insight-oracle-go/internal/models"

	"github.com/shopspring/decimal"
)

// Display currency precision (USDC minor units).
const displayPrecision = 2

// Referral discount: 5% off the base amount.
var discountFactor = decimal.RequireFromString("0.95")

// Strategy prices a query before discount and clamping. Implementations must be
// pure and deterministic. Two strategies exist because the upstream product shipped
// two divergent policies; the integrator picks one via PRICING_STRATEGY.
type Strategy interface {
	Name() string
	Price(query string, category models.Category) decimal.Decimal
}

// CategoryStrategy prices by a fixed per-category table. Query length is ignored.
// Unknown categories fall back to the general price.
type CategoryStrategy struct{}

var categoryPrices = map[models.Category]decimal.Decimal{
	models.CategoryCrypto:    decimal.RequireFromString("0.08"),
	models.CategoryMarket:    decimal.RequireFromString("0.07"),
	models.CategoryBusiness:  decimal.RequireFromString("0.06"),
	models.CategoryTechnical: decimal.RequireFromString("0.09"),
	models.CategoryGeneral:   decimal.RequireFromString("0.05"),
}

func (CategoryStrategy) Name() string { return "category" }

func (CategoryStrategy) Price(_ string, category models.Category) decimal.Decimal {
	if price, ok := categoryPrices[category]; ok {
		return price
	}
	return categoryPrices[models.CategoryGeneral]
}

// LengthStrategy prices by query complexity: a base fee plus a step for each
// word-count threshold crossed. Category is ignored.
type LengthStrategy struct{}

var (
	baseFee        = decimal.RequireFromString("0.05")
	complexityStep = decimal.RequireFromString("0.02")
)

func (LengthStrategy) Name() string { return "length" }

func (LengthStrategy) Price(query string, _ models.Category) decimal.Decimal {
	price := baseFee
	wordCount := len(strings.Fields(query))
	if wordCount > 20 {
		price = price.Add(complexityStep.Mul(decimal.NewFromInt(2)))
	} else if wordCount > 10 {
		price = price.Add(complexityStep)
	}
	return price
}

// StrategyByName resolves a configured strategy name. Unknown names get the
// category strategy, matching the category-wins behavior of the shipped product.
func StrategyByName(name string) Strategy {
	if name == "length" {
		return LengthStrategy{}
	}
	return CategoryStrategy{}
}

// Calculator applies discount, rounding and clamping on top of a Strategy.
type Calculator struct {
	strategy  Strategy
	minAmount decimal.Decimal
	maxAmount decimal.Decimal
}

func NewCalculator(strategy Strategy, cfg models.PricingConfig) *Calculator {
	return &Calculator{
		strategy:  strategy,
		minAmount: cfg.MinAmount,
		maxAmount: cfg.MaxAmount,
	}
}

// Quote computes the charge for a query. The result is always rounded to the
// display currency's minor-unit precision and clamped into [min, max].
func (c *Calculator) Quote(query string, category models.Category, discount bool) models.Charge {
	base := clamp(c.strategy.Price(query, category).Round(displayPrecision), c.minAmount, c.maxAmount)

	final := base
	if discount {
		final = clamp(base.Mul(discountFactor).Round(displayPrecision), c.minAmount, c.maxAmount)
	}

	return models.Charge{
		BaseAmount:      base,
		DiscountApplied: discount,
		FinalAmount:     final,
	}
}

func clamp(amount, min, max decimal.Decimal) decimal.Decimal {
	if amount.LessThan(min) {
		return min
	}
	if amount.GreaterThan(max) {
		return max
	}
	return amount
}
