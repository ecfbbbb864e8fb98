package pricing

import (
	"testing"

	"insight-oracle-go/internal/models"

	"github.com/shopspring/decimal"
)

func testConfig() models.PricingConfig {
	return models.PricingConfig{
		MinAmount: decimal.RequireFromString("0.01"),
		MaxAmount: decimal.RequireFromString("1.00"),
	}
}

func TestCategoryStrategy_PricesByCategory(t *testing.T) {
	strategy := CategoryStrategy{}

	cases := []struct {
		category models.Category
		expected string
	}{
		{models.CategoryCrypto, "0.08"},
		{models.CategoryMarket, "0.07"},
		{models.CategoryBusiness, "0.06"},
		{models.CategoryTechnical, "0.09"},
		{models.CategoryGeneral, "0.05"},
	}

	for _, tc := range cases {
		price := strategy.Price("any query", tc.category)
		if price.String() != tc.expected {
			t.Errorf("Category %s: expected %s, got %s", tc.category, tc.expected, price.String())
		}
	}
}

func TestCategoryStrategy_UnknownCategoryFallsBackToGeneral(t *testing.T) {
	strategy := CategoryStrategy{}

	price := strategy.Price("any query", models.Category("astrology"))
	if price.String() != "0.05" {
		t.Errorf("Expected general price 0.05 for unknown category, got %s", price.String())
	}
}

func TestLengthStrategy_StepsAtWordThresholds(t *testing.T) {
	strategy := LengthStrategy{}

	cases := []struct {
		name     string
		words    int
		expected string
	}{
		{"short query", 5, "0.05"},
		{"at first threshold", 10, "0.05"},
		{"above first threshold", 11, "0.07"},
		{"at second threshold", 20, "0.07"},
		{"above second threshold", 21, "0.09"},
	}

	for _, tc := range cases {
		query := ""
		for i := 0; i < tc.words; i++ {
			query += "word "
		}
		price := strategy.Price(query, models.CategoryGeneral)
		if price.String() != tc.expected {
			t.Errorf("%s (%d words): expected %s, got %s", tc.name, tc.words, tc.expected, price.String())
		}
	}
}

func TestQuote_DiscountIsFivePercent(t *testing.T) {
	calculator := NewCalculator(CategoryStrategy{}, testConfig())

	charge := calculator.Quote("what is bitcoin", models.CategoryCrypto, true)

	if !charge.DiscountApplied {
		t.Fatal("Expected discount to be applied")
	}
	if charge.BaseAmount.String() != "0.08" {
		t.Errorf("Expected base 0.08, got %s", charge.BaseAmount.String())
	}

	expected := charge.BaseAmount.Mul(decimal.RequireFromString("0.95")).Round(2)
	if !charge.FinalAmount.Equal(expected) {
		t.Errorf("Expected final %s, got %s", expected.String(), charge.FinalAmount.String())
	}
}

func TestQuote_NoDiscountChargesBase(t *testing.T) {
	calculator := NewCalculator(CategoryStrategy{}, testConfig())

	charge := calculator.Quote("what is bitcoin", models.CategoryCrypto, false)

	if charge.DiscountApplied {
		t.Fatal("Expected no discount")
	}
	if !charge.FinalAmount.Equal(charge.BaseAmount) {
		t.Errorf("Expected final == base, got final %s base %s",
			charge.FinalAmount.String(), charge.BaseAmount.String())
	}
}

func TestQuote_ClampsIntoConfiguredRange(t *testing.T) {
	cfg := models.PricingConfig{
		MinAmount: decimal.RequireFromString("0.06"),
		MaxAmount: decimal.RequireFromString("0.08"),
	}
	calculator := NewCalculator(CategoryStrategy{}, cfg)

	low := calculator.Quote("q", models.CategoryGeneral, false)
	if low.FinalAmount.String() != "0.06" {
		t.Errorf("Expected clamp up to 0.06, got %s", low.FinalAmount.String())
	}

	high := calculator.Quote("q", models.CategoryTechnical, false)
	if high.FinalAmount.String() != "0.08" {
		t.Errorf("Expected clamp down to 0.08, got %s", high.FinalAmount.String())
	}
}

func TestQuote_DiscountedAmountStaysInRange(t *testing.T) {
	calculator := NewCalculator(CategoryStrategy{}, testConfig())
	cfg := testConfig()

	for _, category := range models.Categories {
		charge := calculator.Quote("q", category, true)
		if charge.FinalAmount.LessThan(cfg.MinAmount) || charge.FinalAmount.GreaterThan(cfg.MaxAmount) {
			t.Errorf("Category %s: discounted amount %s outside [%s, %s]",
				category, charge.FinalAmount.String(), cfg.MinAmount.String(), cfg.MaxAmount.String())
		}
	}
}

func TestStrategyByName(t *testing.T) {
	if StrategyByName("length").Name() != "length" {
		t.Error("Expected length strategy for 'length'")
	}
	if StrategyByName("category").Name() != "category" {
		t.Error("Expected category strategy for 'category'")
	}
	if StrategyByName("bogus").Name() != "category" {
		t.Error("Expected category strategy as fallback for unknown name")
	}
}
