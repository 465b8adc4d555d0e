package models

import "github.com/shopspring/decimal"

type BrandTier int

const (
	BrandTierUnknown BrandTier = iota
	BrandTierValue
	BrandTierMid
	BrandTierPremium
	BrandTierLuxury
)

// brandTiers keys are canonical (lowercased, trimmed) brand names.
// Tier drives both the neutral brand-preference base score and the
// pricing multiplier.
var brandTiers = map[string]BrandTier{
	"gucci":         BrandTierLuxury,
	"prada":         BrandTierLuxury,
	"chanel":        BrandTierLuxury,
	"hermes":        BrandTierLuxury,
	"louis vuitton": BrandTierLuxury,

	"theory":        BrandTierPremium,
	"cos":           BrandTierPremium,
	"everlane":      BrandTierPremium,
	"reformation":   BrandTierPremium,
	"patagonia":     BrandTierPremium,
	"eileen fisher": BrandTierPremium,

	"j.crew":          BrandTierMid,
	"banana republic": BrandTierMid,
	"uniqlo":          BrandTierMid,
	"madewell":        BrandTierMid,
	"organic basics":  BrandTierMid,
	"tentree":         BrandTierMid,
	"kotn":            BrandTierMid,

	"zara": BrandTierValue,
	"h&m":  BrandTierValue,
	"pact": BrandTierValue,
}

// TierOfBrand expects a canonical brand name (see textutil.Canonical).
func TierOfBrand(brand string) BrandTier {
	return brandTiers[brand]
}

// PricingMultiplier is the brand's resale multiplier relative to generic
// category pricing.
func (t BrandTier) PricingMultiplier() decimal.Decimal {
	switch t {
	case BrandTierLuxury:
		return decimal.NewFromFloat(2.5)
	case BrandTierPremium:
		return decimal.NewFromFloat(1.4)
	case BrandTierMid:
		return decimal.NewFromFloat(1.0)
	case BrandTierValue:
		return decimal.NewFromFloat(0.7)
	default:
		return decimal.NewFromFloat(1.0)
	}
}
