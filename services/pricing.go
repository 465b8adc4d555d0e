package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"modaapi/models"
	"modaapi/textutil"
)

// PriceEstimate is a suggested resale price with a band around it.
// All money values are decimals; binary floats never touch prices.
type PriceEstimate struct {
	Suggested  decimal.Decimal `json:"suggested"`
	RangeLow   decimal.Decimal `json:"range_low"`
	RangeHigh  decimal.Decimal `json:"range_high"`
	Currency   string          `json:"currency"`
	Confidence float64         `json:"confidence"`
	Factors    []string        `json:"factors"`
}

// categoryBasePrices are generic secondhand anchors in AUD, used when
// the seller does not know the original retail price.
var categoryBasePrices = map[models.Category]decimal.Decimal{
	models.CategoryTops:        decimal.NewFromInt(25),
	models.CategoryBottoms:     decimal.NewFromInt(35),
	models.CategoryDresses:     decimal.NewFromInt(45),
	models.CategoryOuterwear:   decimal.NewFromInt(70),
	models.CategoryFootwear:    decimal.NewFromInt(55),
	models.CategoryAccessories: decimal.NewFromInt(20),
	models.CategoryActivewear:  decimal.NewFromInt(30),
	models.CategorySwimwear:    decimal.NewFromInt(20),
	models.CategoryBags:        decimal.NewFromInt(60),
}

var conditionMultipliers = map[models.Condition]decimal.Decimal{
	models.ConditionNewWithTags:    decimal.NewFromFloat(0.80),
	models.ConditionNewWithoutTags: decimal.NewFromFloat(0.70),
	models.ConditionExcellent:      decimal.NewFromFloat(0.60),
	models.ConditionVeryGood:       decimal.NewFromFloat(0.50),
	models.ConditionGood:           decimal.NewFromFloat(0.40),
	models.ConditionFair:           decimal.NewFromFloat(0.25),
	models.ConditionVintage:        decimal.NewFromFloat(0.55),
	models.ConditionNeedsRepair:    decimal.NewFromFloat(0.15),
}

var (
	sustainabilityBonus = decimal.NewFromFloat(1.10)
	minimumPrice        = decimal.NewFromInt(5)
	rangeSpread         = decimal.NewFromFloat(0.20)
)

// EstimatePrice suggests a listing price from the garment's category,
// condition, brand tier and original retail price when known. The
// estimate is advisory; sellers set the final price.
func EstimatePrice(g *models.Garment) PriceEstimate {
	factors := []string{}
	confidence := 0.5

	base, ok := categoryBasePrices[g.Category]
	if !ok {
		base = decimal.NewFromInt(25)
	}
	if g.OriginalPrice.Valid && g.OriginalPrice.Decimal.IsPositive() {
		base = g.OriginalPrice.Decimal
		confidence += 0.3
		factors = append(factors, "based on original retail price")
	} else {
		factors = append(factors, fmt.Sprintf("typical secondhand %s pricing", g.Category))
	}

	conditionMult, ok := conditionMultipliers[g.Condition]
	if !ok {
		conditionMult = decimal.NewFromFloat(0.40)
	}
	price := base.Mul(conditionMult)
	factors = append(factors, fmt.Sprintf("condition: %s", g.Condition))

	if g.Brand != nil {
		tier := models.TierOfBrand(textutil.Canonical(*g.Brand))
		price = price.Mul(tier.PricingMultiplier())
		if tier != models.BrandTierUnknown {
			confidence += 0.1
			factors = append(factors, fmt.Sprintf("brand: %s", textutil.Title(*g.Brand)))
		}
	}

	if g.Sustainable {
		price = price.Mul(sustainabilityBonus)
		factors = append(factors, "sustainable materials premium")
	}

	price = price.Round(2)
	if price.LessThan(minimumPrice) {
		price = minimumPrice
	}

	spread := price.Mul(rangeSpread)
	low := price.Sub(spread).Round(2)
	if low.LessThan(minimumPrice) {
		low = minimumPrice
	}
	high := price.Add(spread).Round(2)

	if confidence > 0.9 {
		confidence = 0.9
	}
	currency := g.Currency
	if currency == "" {
		currency = "AUD"
	}
	return PriceEstimate{
		Suggested:  price,
		RangeLow:   low,
		RangeHigh:  high,
		Currency:   currency,
		Confidence: confidence,
		Factors:    factors,
	}
}
