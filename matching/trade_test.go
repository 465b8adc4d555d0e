package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/models"
)

func tradeGarment(id, owner uint, mutate func(*models.Garment)) models.Garment {
	g := garment(id, func(g *models.Garment) {
		g.OwnerID = owner
		g.ExchangeMode = models.ExchangeTrade
	})
	if mutate != nil {
		mutate(&g)
	}
	return g
}

func TestFindTradeMatchesCombinesByMinimum(t *testing.T) {
	scorer := NewScorer(DefaultWeights)

	// The candidate fits the user well, but the user's offer fits the
	// owner poorly: the pair must not surface.
	user := profile(nil)
	owner := profile(func(p *models.UserStyleProfile) {
		p.DominantAesthetic = models.AestheticStreetwear
		p.PreferredColors = []string{"neon green"}
		p.PreferredBrands = nil
		p.SizesByCategory = map[string][]string{"tops": {"xxl"}}
		p.SustainabilityAffinity = 0
	})

	brand := "cos"
	offered := tradeGarment(1, 1, func(g *models.Garment) {
		g.Brand = &brand
		g.SizeLabel = "xs"
		g.Sustainable = true
	})
	candidate := tradeGarment(2, 9, func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"black"}
		g.SizeLabel = "m"
		g.Sustainable = true
	})

	matches := scorer.FindTradeMatches(TradeInput{
		Offered:       []models.Garment{offered},
		Candidates:    []models.Garment{candidate},
		UserProfile:   user,
		OwnerProfiles: map[uint]*models.UserStyleProfile{9: owner},
	})

	toUser, err := scorer.Compatibility(user, &candidate)
	require.NoError(t, err)
	toOwner, err := scorer.Compatibility(owner, &offered)
	require.NoError(t, err)
	require.Greater(t, toUser.Overall, TradeMatchThreshold)
	require.Less(t, toOwner.Overall, TradeMatchThreshold)

	assert.Empty(t, matches)
}

func TestFindTradeMatchesSurfacesMutualFit(t *testing.T) {
	scorer := NewScorer(DefaultWeights)
	user := profile(nil)
	owner := profile(func(p *models.UserStyleProfile) { p.UserAccountID = 9 })

	brand := "cos"
	offered := tradeGarment(1, 1, func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"black"}
		g.SizeLabel = "m"
		g.Sustainable = true
	})
	candidate := tradeGarment(2, 9, func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"white"}
		g.SizeLabel = "s"
		g.Sustainable = true
	})

	matches := scorer.FindTradeMatches(TradeInput{
		Offered:        []models.Garment{offered},
		Candidates:     []models.Garment{candidate},
		UserProfile:    user,
		OwnerProfiles:  map[uint]*models.UserStyleProfile{9: owner},
		UserWishlist:   map[uint]bool{2: true},
		OwnerWishlists: map[uint]map[uint]bool{9: {1: true}},
	})

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, uint(1), m.Offered.ID)
	assert.Equal(t, uint(2), m.Candidate.ID)
	assert.Greater(t, m.Score, TradeMatchThreshold)
	assert.Equal(t, models.ExchangeTrade, m.Suggested)

	assert.Contains(t, m.Reasons, TradeReasonCategory)
	assert.Contains(t, m.Reasons, TradeReasonWishlist)
	assert.Contains(t, m.Reasons, TradeReasonMutual)
}

func TestFindTradeMatchesLocationProximity(t *testing.T) {
	scorer := NewScorer(DefaultWeights)
	user := profile(nil)
	owner := profile(func(p *models.UserStyleProfile) { p.UserAccountID = 9 })

	brand := "cos"
	near := func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"black"}
		g.SizeLabel = "m"
		g.Sustainable = true
	}
	offered := tradeGarment(1, 1, near)
	candidate := tradeGarment(2, 9, near)

	// Sydney CBD and Newtown, a few kilometers apart.
	userLat, userLon := -33.8688, 151.2093
	ownerLat, ownerLon := -33.8966, 151.1793

	matches := scorer.FindTradeMatches(TradeInput{
		Offered:       []models.Garment{offered},
		Candidates:    []models.Garment{candidate},
		UserProfile:   user,
		OwnerProfiles: map[uint]*models.UserStyleProfile{9: owner},
		UserLat:       &userLat,
		UserLon:       &userLon,
		OwnerLat:      map[uint]*float64{9: &ownerLat},
		OwnerLon:      map[uint]*float64{9: &ownerLon},
	})

	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Reasons, TradeReasonLocation)
}

func TestFindTradeMatchesOrderedByScore(t *testing.T) {
	scorer := NewScorer(DefaultWeights)
	user := profile(nil)
	owner := profile(func(p *models.UserStyleProfile) { p.UserAccountID = 9 })

	brand := "cos"
	strong := func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"black"}
		g.SizeLabel = "m"
		g.Sustainable = true
	}
	offered := tradeGarment(1, 1, strong)
	goodFit := tradeGarment(2, 9, strong)
	weakerFit := tradeGarment(3, 9, func(g *models.Garment) {
		g.Brand = &brand
		g.Colors = []string{"magenta"}
		g.SizeLabel = "m"
		g.Sustainable = true
	})

	matches := scorer.FindTradeMatches(TradeInput{
		Offered:       []models.Garment{offered},
		Candidates:    []models.Garment{weakerFit, goodFit},
		UserProfile:   user,
		OwnerProfiles: map[uint]*models.UserStyleProfile{9: owner},
	})

	require.Len(t, matches, 2)
	assert.Equal(t, uint(2), matches[0].Candidate.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestHaversineKm(t *testing.T) {
	// Sydney to Melbourne is roughly 714 km.
	d := HaversineKm(-33.8688, 151.2093, -37.8136, 144.9631)
	assert.InDelta(t, 714, d, 10)

	assert.Equal(t, 0.0, HaversineKm(10, 20, 10, 20))
}
