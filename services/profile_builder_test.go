package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/models"
)

func ownedGarment(category models.Category, size string, mutate func(*models.Garment)) models.Garment {
	g := models.Garment{
		Title:        "Wardrobe item",
		Category:     category,
		SizeLabel:    size,
		SizingSystem: models.SizingUS,
		Condition:    models.ConditionGood,
	}
	if mutate != nil {
		mutate(&g)
	}
	return g
}

func TestBuildStyleProfileFrequencyOrdering(t *testing.T) {
	brand := "cos"
	owned := []models.Garment{
		ownedGarment(models.CategoryTops, "m", func(g *models.Garment) {
			g.Colors = []string{"black"}
			g.Brand = &brand
		}),
		ownedGarment(models.CategoryTops, "m", func(g *models.Garment) {
			g.Colors = []string{"black", "white"}
		}),
		ownedGarment(models.CategoryBottoms, "m", func(g *models.Garment) {
			g.Colors = []string{"white"}
		}),
	}

	profile := BuildStyleProfile(1, owned, nil)

	require.NotEmpty(t, profile.PreferredColors)
	assert.Equal(t, "black", profile.PreferredColors[0])
	assert.Equal(t, []string{"cos"}, []string(profile.PreferredBrands))
	assert.Equal(t, "tops", profile.PreferredCategories[0])
	assert.Equal(t, uint(1), profile.UserAccountID)
}

func TestBuildStyleProfileSizesAndConsistency(t *testing.T) {
	owned := []models.Garment{
		ownedGarment(models.CategoryTops, "S", nil),
		ownedGarment(models.CategoryTops, "M", nil),
		ownedGarment(models.CategoryTops, "M", nil),
	}

	profile := BuildStyleProfile(1, owned, nil)

	assert.Equal(t, []string{"m", "s"}, profile.SizesByCategory["tops"])
	assert.InDelta(t, 100.0*2/3, profile.SizeConsistency, 1e-9)
}

func TestBuildStyleProfileAffinities(t *testing.T) {
	owned := []models.Garment{
		ownedGarment(models.CategoryTops, "m", func(g *models.Garment) { g.Sustainable = true }),
		ownedGarment(models.CategoryTops, "m", func(g *models.Garment) { g.Source = models.SourceVintage }),
		ownedGarment(models.CategoryTops, "m", nil),
		ownedGarment(models.CategoryTops, "m", nil),
	}

	profile := BuildStyleProfile(1, owned, nil)

	assert.InDelta(t, 25.0, profile.SustainabilityAffinity, 1e-9)
	assert.InDelta(t, 25.0, profile.VintageAffinity, 1e-9)
	assert.Equal(t, 0.0, profile.LuxuryAffinity)
}

func TestBuildStyleProfileInteractionsWeighHeavier(t *testing.T) {
	owned := []models.Garment{
		ownedGarment(models.CategoryTops, "m", func(g *models.Garment) { g.Colors = []string{"black"} }),
	}
	red := ownedGarment(models.CategoryDresses, "m", func(g *models.Garment) { g.Colors = []string{"red"} })
	interactions := []models.InteractionEvent{
		{UserAccountID: 1, Garment: red, Kind: models.InteractionPurchase},
		{UserAccountID: 1, Garment: red, Kind: models.InteractionFavorite},
	}

	profile := BuildStyleProfile(1, owned, interactions)

	// 5 + 3 purchase/favorite weight beats 4 owned weight.
	require.NotEmpty(t, profile.PreferredColors)
	assert.Equal(t, "red", profile.PreferredColors[0])
}

func TestBuildStyleProfileEmptyWardrobe(t *testing.T) {
	profile := BuildStyleProfile(7, nil, nil)

	assert.Empty(t, profile.PreferredColors)
	assert.Empty(t, profile.DominantAesthetic)
	assert.Equal(t, 0.0, profile.SustainabilityAffinity)
}
