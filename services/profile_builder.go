package services

import (
	"sort"

	"modaapi/matching"
	"modaapi/models"
	"modaapi/textutil"
)

// Interaction weights: owning a garment says more than viewing one,
// buying says the most.
const (
	weightOwned    = 4.0
	weightView     = 1.0
	weightFavorite = 3.0
	weightPurchase = 5.0
)

func interactionWeight(kind models.InteractionKind) float64 {
	switch kind {
	case models.InteractionPurchase:
		return weightPurchase
	case models.InteractionFavorite:
		return weightFavorite
	default:
		return weightView
	}
}

// BuildStyleProfile derives a style profile from the user's wardrobe
// and interaction history. Pure; the caller persists the result and
// clears the stale flag.
func BuildStyleProfile(userID uint, owned []models.Garment, interactions []models.InteractionEvent) *models.UserStyleProfile {
	colorCounts := map[string]float64{}
	brandCounts := map[string]float64{}
	categoryCounts := map[string]float64{}
	aestheticCounts := map[string]float64{}
	sizesByCategory := map[string]map[string]bool{}

	var total, sustainable, vintage, luxury float64

	observe := func(g *models.Garment, weight float64) {
		total += weight
		if g.Sustainable {
			sustainable += weight
		}
		if g.IsVintage() {
			vintage += weight
		}
		if g.Luxury {
			luxury += weight
		}
		for _, c := range g.Colors {
			colorCounts[textutil.Canonical(c)] += weight
		}
		if g.Brand != nil {
			brandCounts[textutil.Canonical(*g.Brand)] += weight
		}
		categoryCounts[string(g.Category)] += weight
		for _, tag := range matching.GarmentTags(g) {
			aestheticCounts[tag] += weight
		}
	}

	for i := range owned {
		g := &owned[i]
		observe(g, weightOwned)
		if g.SizingSystem != models.SizingOneSize && g.SizeLabel != "" {
			key := string(g.Category)
			if sizesByCategory[key] == nil {
				sizesByCategory[key] = map[string]bool{}
			}
			sizesByCategory[key][textutil.Canonical(g.SizeLabel)] = true
		}
	}
	for i := range interactions {
		observe(&interactions[i].Garment, interactionWeight(interactions[i].Kind))
	}

	profile := &models.UserStyleProfile{
		UserAccountID:       userID,
		PreferredColors:     topKeys(colorCounts, 8),
		PreferredBrands:     topKeys(brandCounts, 8),
		PreferredCategories: topKeys(categoryCounts, 5),
		SizesByCategory:     map[string][]string{},
	}

	aesthetics := topKeys(aestheticCounts, 4)
	if len(aesthetics) > 0 {
		profile.DominantAesthetic = models.Aesthetic(aesthetics[0])
		profile.SecondaryAesthetics = aesthetics[1:]
	}

	for category, labels := range sizesByCategory {
		profile.SizesByCategory[category] = sortedKeys(labels)
	}
	profile.SizeConsistency = sizeConsistency(owned)

	if total > 0 {
		profile.SustainabilityAffinity = 100 * sustainable / total
		profile.VintageAffinity = 100 * vintage / total
		profile.LuxuryAffinity = 100 * luxury / total
	}
	return profile
}

// topKeys orders keys by descending weight, key text breaking ties so
// recomputation is deterministic.
func topKeys(counts map[string]float64, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sizeConsistency measures how often the user wears their modal size
// per category, averaged over categories with sized garments.
func sizeConsistency(owned []models.Garment) float64 {
	perCategory := map[string]map[string]int{}
	for i := range owned {
		g := &owned[i]
		if g.SizingSystem == models.SizingOneSize || g.SizeLabel == "" {
			continue
		}
		key := string(g.Category)
		if perCategory[key] == nil {
			perCategory[key] = map[string]int{}
		}
		perCategory[key][textutil.Canonical(g.SizeLabel)]++
	}
	if len(perCategory) == 0 {
		return 0
	}
	var sum float64
	for _, counts := range perCategory {
		mode, total := 0, 0
		for _, n := range counts {
			total += n
			if n > mode {
				mode = n
			}
		}
		sum += 100 * float64(mode) / float64(total)
	}
	return sum / float64(len(perCategory))
}
