package matching

import (
	"github.com/shopspring/decimal"

	"modaapi/models"
	"modaapi/textutil"
)

// ApplyFilter returns the candidates satisfying every present field of
// the filter. Pure and deterministic; a nil filter passes everything
// through. Cheap flag and membership checks run before the price range.
func ApplyFilter(candidates []models.Garment, filter *FilterSpec) []models.Garment {
	if filter == nil {
		return candidates
	}

	categories := categorySet(filter.Categories)
	sizes := canonicalSet(filter.Sizes)
	conditions := conditionSet(filter.Conditions)
	colors := canonicalSet(filter.Colors)
	brands := canonicalSet(filter.Brands)
	materials := canonicalSet(filter.Materials)
	sources := sourceSet(filter.Sources)

	out := make([]models.Garment, 0, len(candidates))
	for _, g := range candidates {
		if filter.SustainableOnly && !g.Sustainable {
			continue
		}
		if filter.VintageOnly && !g.IsVintage() {
			continue
		}
		if filter.LuxuryOnly && !g.Luxury {
			continue
		}
		if filter.Exchange != nil && !exchangeCompatible(g.ExchangeMode, *filter.Exchange) {
			continue
		}
		if categories != nil && !categories[g.Category] {
			continue
		}
		if conditions != nil && !conditions[g.Condition] {
			continue
		}
		if sources != nil && !sources[g.Source] {
			continue
		}
		if sizes != nil && !sizes[textutil.Canonical(g.SizeLabel)] {
			continue
		}
		if brands != nil && (g.Brand == nil || !brands[textutil.Canonical(*g.Brand)]) {
			continue
		}
		if colors != nil && !anyCanonicalIn(g.Colors, colors) {
			continue
		}
		if materials != nil && !anyCanonicalIn(g.Materials, materials) {
			continue
		}
		if !priceInRange(&g, filter.PriceMin, filter.PriceMax) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// exchangeCompatible checks the requested mode against the listing's.
// Asking for "either" accepts any listing.
func exchangeCompatible(listing, wanted models.ExchangeMode) bool {
	switch wanted {
	case models.ExchangeSell:
		return listing.IncludesSell()
	case models.ExchangeTrade:
		return listing.IncludesTrade()
	default:
		return true
	}
}

// priceInRange is inclusive on both bounds. Unpriced (trade-only)
// listings match only when no price bound is set.
func priceInRange(g *models.Garment, min, max *decimal.Decimal) bool {
	if min == nil && max == nil {
		return true
	}
	if !g.Price.Valid {
		return false
	}
	p := g.Price.Decimal
	if min != nil && p.LessThan(*min) {
		return false
	}
	if max != nil && p.GreaterThan(*max) {
		return false
	}
	return true
}

func categorySet(values []models.Category) map[models.Category]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[models.Category]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func conditionSet(values []models.Condition) map[models.Condition]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[models.Condition]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func sourceSet(values []models.Source) map[models.Source]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[models.Source]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func canonicalSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[textutil.Canonical(v)] = true
	}
	return m
}

func anyCanonicalIn(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[textutil.Canonical(v)] {
			return true
		}
	}
	return false
}
