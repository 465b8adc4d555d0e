package models

import "github.com/lib/pq"

type Aesthetic string

const (
	AestheticMinimalist Aesthetic = "minimalist"
	AestheticVintage    Aesthetic = "vintage"
	AestheticStreetwear Aesthetic = "streetwear"
	AestheticBohemian   Aesthetic = "bohemian"
	AestheticClassic    Aesthetic = "classic"
	AestheticRomantic   Aesthetic = "romantic"
	AestheticSporty     Aesthetic = "sporty"
	AestheticEdgy       Aesthetic = "edgy"
	AestheticLuxury     Aesthetic = "luxury"
	AestheticCasual     Aesthetic = "casual"
)

var AllAesthetics = []Aesthetic{
	AestheticMinimalist, AestheticVintage, AestheticStreetwear,
	AestheticBohemian, AestheticClassic, AestheticRomantic,
	AestheticSporty, AestheticEdgy, AestheticLuxury, AestheticCasual,
}

// UserStyleProfile is derived from the user's wardrobe and interaction
// history, never edited directly. A wardrobe change marks the row stale;
// the worker recomputes it.
type UserStyleProfile struct {
	JsonModel
	UserAccountID uint        `gorm:"uniqueIndex" json:"user_id"`
	UserAccount   UserAccount `json:"-"`

	DominantAesthetic   Aesthetic      `json:"dominant_aesthetic"`
	SecondaryAesthetics pq.StringArray `gorm:"type:text[]" json:"secondary_aesthetics"`

	// Frequency-ordered, most worn/bought first. Values are canonical
	// (textutil.Canonical).
	PreferredColors     pq.StringArray `gorm:"type:text[]" json:"preferred_colors"`
	PreferredBrands     pq.StringArray `gorm:"type:text[]" json:"preferred_brands"`
	PreferredCategories pq.StringArray `gorm:"type:text[]" json:"preferred_categories"`

	// Historical size labels per category, e.g. {"tops": ["s","m"]}.
	SizesByCategory map[string][]string `gorm:"serializer:json" json:"sizes_by_category"`

	SizeConsistency        float64 `json:"size_consistency"`
	SustainabilityAffinity float64 `json:"sustainability_affinity"`
	VintageAffinity        float64 `json:"vintage_affinity"`
	LuxuryAffinity         float64 `json:"luxury_affinity"`

	Stale bool `gorm:"default:false" json:"stale"`
}

// AestheticTags returns dominant plus secondary tags as plain strings.
func (p *UserStyleProfile) AestheticTags() []string {
	tags := make([]string, 0, len(p.SecondaryAesthetics)+1)
	if p.DominantAesthetic != "" {
		tags = append(tags, string(p.DominantAesthetic))
	}
	for _, t := range p.SecondaryAesthetics {
		if t != string(p.DominantAesthetic) {
			tags = append(tags, t)
		}
	}
	return tags
}
