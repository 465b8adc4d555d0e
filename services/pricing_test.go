package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/models"
)

func TestEstimatePriceUsesOriginalPriceWhenKnown(t *testing.T) {
	brand := "Uniqlo"
	g := &models.Garment{
		Category:      models.CategoryTops,
		Condition:     models.ConditionExcellent,
		Brand:         &brand,
		OriginalPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}

	estimate := EstimatePrice(g)

	// 100 * 0.60 * 1.0 mid tier
	assert.True(t, estimate.Suggested.Equal(decimal.NewFromInt(60)), estimate.Suggested.String())
	assert.True(t, estimate.RangeLow.LessThan(estimate.Suggested))
	assert.True(t, estimate.RangeHigh.GreaterThan(estimate.Suggested))
	assert.GreaterOrEqual(t, estimate.Confidence, 0.8)
}

func TestEstimatePriceLuxuryBrandMultiplier(t *testing.T) {
	brand := "Gucci"
	g := &models.Garment{
		Category:      models.CategoryBags,
		Condition:     models.ConditionVeryGood,
		Brand:         &brand,
		OriginalPrice: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
	}

	estimate := EstimatePrice(g)

	// 1000 * 0.50 * 2.5
	assert.True(t, estimate.Suggested.Equal(decimal.NewFromInt(1250)), estimate.Suggested.String())
}

func TestEstimatePriceNeverBelowMinimum(t *testing.T) {
	g := &models.Garment{
		Category:  models.CategoryAccessories,
		Condition: models.ConditionNeedsRepair,
	}

	estimate := EstimatePrice(g)

	require.True(t, estimate.Suggested.GreaterThanOrEqual(decimal.NewFromInt(5)))
	assert.True(t, estimate.RangeLow.GreaterThanOrEqual(decimal.NewFromInt(5)))
}

func TestEstimatePriceSustainabilityPremium(t *testing.T) {
	plain := &models.Garment{
		Category:      models.CategoryDresses,
		Condition:     models.ConditionGood,
		OriginalPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}
	eco := &models.Garment{
		Category:      models.CategoryDresses,
		Condition:     models.ConditionGood,
		OriginalPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Sustainable:   true,
	}

	assert.True(t, EstimatePrice(eco).Suggested.GreaterThan(EstimatePrice(plain).Suggested))
	assert.Contains(t, EstimatePrice(eco).Factors, "sustainable materials premium")
}

func TestEstimatePriceDefaultsCurrency(t *testing.T) {
	g := &models.Garment{Category: models.CategoryTops, Condition: models.ConditionGood}
	assert.Equal(t, "AUD", EstimatePrice(g).Currency)
}
