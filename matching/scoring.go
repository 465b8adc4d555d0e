package matching

import (
	"strings"

	"modaapi/models"
	"modaapi/textutil"
)

// NeutralScore is the fallback when profile data is missing or a
// candidate cannot be scored. Keeps the page complete instead of
// failing it.
const NeutralScore = 50.0

// Weights blends the five compatibility sub-scores. Tunable via
// configuration; DefaultWeights sums to 1.0 with style and size as the
// primary signals.
type Weights struct {
	Style          float64
	Size           float64
	Color          float64
	Brand          float64
	Sustainability float64
}

var DefaultWeights = Weights{
	Style:          0.30,
	Size:           0.25,
	Color:          0.15,
	Brand:          0.15,
	Sustainability: 0.15,
}

type Scorer struct {
	Weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{Weights: w}
}

// Neutral returns the degraded score used when a profile is absent.
func Neutral() CompatibilityScore {
	return CompatibilityScore{
		Overall:                 NeutralScore,
		StyleMatch:              NeutralScore,
		SizeMatch:               NeutralScore,
		ColorMatch:              NeutralScore,
		BrandPreference:         NeutralScore,
		SustainabilityAlignment: NeutralScore,
		Degraded:                true,
	}
}

// Compatibility scores a garment against a style profile. Every
// sub-score and the overall value lie in [0, 100]. A nil profile
// degrades to the neutral score with a ScoringError for the caller to
// flag.
func (s *Scorer) Compatibility(profile *models.UserStyleProfile, g *models.Garment) (CompatibilityScore, error) {
	if profile == nil {
		return Neutral(), &ScoringError{GarmentID: g.ID, Reason: "missing style profile"}
	}

	score := CompatibilityScore{
		StyleMatch:              styleMatch(profile, g),
		SizeMatch:               sizeMatch(profile, g),
		ColorMatch:              colorMatch(profile, g),
		BrandPreference:         brandPreference(profile, g),
		SustainabilityAlignment: sustainabilityAlignment(profile, g),
	}
	w := s.Weights
	score.Overall = clamp(score.StyleMatch*w.Style +
		score.SizeMatch*w.Size +
		score.ColorMatch*w.Color +
		score.BrandPreference*w.Brand +
		score.SustainabilityAlignment*w.Sustainability)
	return score, nil
}

// categoryStyleWords maps a garment category to the aesthetics it
// loosely signals. Coarse on purpose; brand tier and story text refine
// the tag set.
var categoryStyleWords = map[models.Category][]string{
	models.CategoryTops:        {"casual", "minimalist"},
	models.CategoryBottoms:     {"casual"},
	models.CategoryDresses:     {"romantic", "classic"},
	models.CategoryOuterwear:   {"streetwear", "classic"},
	models.CategoryFootwear:    {"streetwear", "sporty"},
	models.CategoryAccessories: {"classic"},
	models.CategoryActivewear:  {"sporty"},
	models.CategorySwimwear:    {"sporty"},
	models.CategoryBags:        {"classic", "luxury"},
}

var tierStyleWords = map[models.BrandTier][]string{
	models.BrandTierLuxury:  {"luxury", "classic"},
	models.BrandTierPremium: {"minimalist", "classic"},
	models.BrandTierValue:   {"casual"},
}

// GarmentTags infers aesthetic tags for a garment from its category,
// brand tier, flags and listing text.
func GarmentTags(g *models.Garment) []string {
	tags := map[string]bool{}
	for _, w := range categoryStyleWords[g.Category] {
		tags[w] = true
	}
	if g.Brand != nil {
		for _, w := range tierStyleWords[models.TierOfBrand(textutil.Canonical(*g.Brand))] {
			tags[w] = true
		}
	}
	if g.IsVintage() {
		tags["vintage"] = true
	}
	if g.Luxury {
		tags["luxury"] = true
	}

	text := textutil.Canonical(g.Title)
	if g.Story != nil {
		text += " " + textutil.Canonical(*g.Story)
	}
	for _, a := range models.AllAesthetics {
		if strings.Contains(text, string(a)) {
			tags[string(a)] = true
		}
	}

	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	return out
}

// styleMatch is the Jaccard overlap of the profile's aesthetic tags
// and the garment's inferred tags, scaled to [0, 100].
func styleMatch(profile *models.UserStyleProfile, g *models.Garment) float64 {
	profileTags := profile.AestheticTags()
	garmentTags := GarmentTags(g)
	if len(profileTags) == 0 || len(garmentTags) == 0 {
		return NeutralScore
	}
	inProfile := make(map[string]bool, len(profileTags))
	for _, t := range profileTags {
		inProfile[textutil.Canonical(t)] = true
	}
	union := len(inProfile)
	intersection := 0
	for _, t := range garmentTags {
		if inProfile[t] {
			intersection++
		} else {
			union++
		}
	}
	return clamp(100 * float64(intersection) / float64(union))
}

// sizeLadder orders standard labels so distance between two sizes is
// meaningful. Numeric and off-ladder labels score neutral.
var sizeLadder = map[string]int{
	"xxs": 0, "xs": 1, "s": 2, "m": 3, "l": 4, "xl": 5, "xxl": 6, "3xl": 7,
}

// sizeMatch is 100 when the garment's size falls within the user's
// historical range for the category, decaying linearly to 0 three
// ladder steps outside it.
func sizeMatch(profile *models.UserStyleProfile, g *models.Garment) float64 {
	if g.SizingSystem == models.SizingOneSize {
		return 100
	}
	history := profile.SizesByCategory[string(g.Category)]
	if len(history) == 0 {
		return NeutralScore
	}
	pos, ok := sizeLadder[textutil.Canonical(g.SizeLabel)]
	if !ok {
		return NeutralScore
	}
	min, max := -1, -1
	for _, label := range history {
		p, ok := sizeLadder[textutil.Canonical(label)]
		if !ok {
			continue
		}
		if min == -1 || p < min {
			min = p
		}
		if max == -1 || p > max {
			max = p
		}
	}
	if min == -1 {
		return NeutralScore
	}
	if pos >= min && pos <= max {
		return 100
	}
	distance := min - pos
	if pos > max {
		distance = pos - max
	}
	return clamp(100 * (1 - float64(distance)/3))
}

// colorMatch rewards garments carrying a color the profile prefers,
// weighted by how highly ranked that color is. No overlap scores low
// but not zero; a profile with no color history is neutral.
func colorMatch(profile *models.UserStyleProfile, g *models.Garment) float64 {
	if len(profile.PreferredColors) == 0 {
		return NeutralScore
	}
	n := len(profile.PreferredColors)
	bestRank := -1
	for _, c := range g.Colors {
		canonical := textutil.Canonical(c)
		for rank, preferred := range profile.PreferredColors {
			if canonical == preferred {
				if bestRank == -1 || rank < bestRank {
					bestRank = rank
				}
				break
			}
		}
	}
	if bestRank == -1 {
		return 15
	}
	return clamp(100 * float64(n-bestRank) / float64(n))
}

// brandPreference is 100 for a preferred brand, otherwise a base score
// from the brand tier, otherwise neutral.
func brandPreference(profile *models.UserStyleProfile, g *models.Garment) float64 {
	if g.Brand == nil {
		return NeutralScore
	}
	brand := textutil.Canonical(*g.Brand)
	for _, preferred := range profile.PreferredBrands {
		if brand == preferred {
			return 100
		}
	}
	switch models.TierOfBrand(brand) {
	case models.BrandTierLuxury:
		return 75
	case models.BrandTierPremium:
		return 65
	case models.BrandTierMid:
		return 55
	case models.BrandTierValue:
		return 45
	default:
		return NeutralScore
	}
}

// sustainabilityAlignment compares the profile's affinity with the
// garment's sustainability signal; both high or both low score well,
// mismatch scores poorly.
func sustainabilityAlignment(profile *models.UserStyleProfile, g *models.Garment) float64 {
	signal := 30.0
	switch {
	case g.Sustainable:
		signal = 100
	case g.IsVintage():
		signal = 80
	}
	diff := profile.SustainabilityAffinity - signal
	if diff < 0 {
		diff = -diff
	}
	return clamp(100 - diff)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
