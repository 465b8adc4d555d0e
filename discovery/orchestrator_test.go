package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modaapi/matching"
	"modaapi/models"
)

type fakeStore struct {
	garments    []models.Garment
	users       map[uint]models.UserAccount
	profiles    map[uint]*models.UserStyleProfile
	follows     map[uint][]uint
	collections map[uint]*models.CuratedCollection
	wishlists   map[uint]map[uint]bool

	stale        bool
	failuresLeft int
	calls        int
}

func (f *fakeStore) fail() error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return &matching.UpstreamError{Op: "fake", Err: errors.New("connection reset"), Retryable: true}
	}
	return nil
}

func (f *fakeStore) QueryListed(ctx context.Context) ([]models.Garment, bool, error) {
	f.calls++
	if err := f.fail(); err != nil {
		return nil, false, err
	}
	var listed []models.Garment
	for _, g := range f.garments {
		if g.IsListed() {
			listed = append(listed, g)
		}
	}
	return listed, f.stale, nil
}

func (f *fakeStore) GetGarment(ctx context.Context, id uint) (*models.Garment, error) {
	f.calls++
	for i := range f.garments {
		if f.garments[i].ID == id {
			g := f.garments[i]
			return &g, nil
		}
	}
	return nil, &matching.NotFoundError{Resource: "garment", ID: id}
}

func (f *fakeStore) GarmentsByIDs(ctx context.Context, ids []uint) ([]models.Garment, error) {
	f.calls++
	var out []models.Garment
	for _, id := range ids {
		for i := range f.garments {
			if f.garments[i].ID == id {
				out = append(out, f.garments[i])
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GarmentsOwnedBy(ctx context.Context, userID uint) ([]models.Garment, error) {
	f.calls++
	var out []models.Garment
	for _, g := range f.garments {
		if g.OwnerID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) User(ctx context.Context, id uint) (*models.UserAccount, error) {
	f.calls++
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, &matching.NotFoundError{Resource: "user", ID: id}
}

func (f *fakeStore) UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.UserAccount, error) {
	f.calls++
	out := map[uint]models.UserAccount{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) StyleProfile(ctx context.Context, userID uint) (*models.UserStyleProfile, error) {
	f.calls++
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, &matching.NotFoundError{Resource: "style profile", ID: userID}
}

func (f *fakeStore) StyleProfilesByUserIDs(ctx context.Context, userIDs []uint) (map[uint]*models.UserStyleProfile, error) {
	f.calls++
	out := map[uint]*models.UserStyleProfile{}
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeStore) FollowedSellerIDs(ctx context.Context, userID uint) ([]uint, error) {
	f.calls++
	return f.follows[userID], nil
}

func (f *fakeStore) Collection(ctx context.Context, id uint) (*models.CuratedCollection, error) {
	f.calls++
	if c, ok := f.collections[id]; ok {
		return c, nil
	}
	return nil, &matching.NotFoundError{Resource: "collection", ID: id}
}

func (f *fakeStore) WishlistGarmentIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	f.calls++
	if w, ok := f.wishlists[userID]; ok {
		return w, nil
	}
	return map[uint]bool{}, nil
}

func (f *fakeStore) WishlistsByOwners(ctx context.Context, ownerIDs []uint) (map[uint]map[uint]bool, error) {
	f.calls++
	out := map[uint]map[uint]bool{}
	for _, id := range ownerIDs {
		if w, ok := f.wishlists[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func listedGarment(id, owner uint, mutate func(*models.Garment)) models.Garment {
	g := models.Garment{
		Title:        fmt.Sprintf("Garment %d", id),
		OwnerID:      owner,
		Category:     models.CategoryTops,
		SizeLabel:    "m",
		SizingSystem: models.SizingUS,
		Condition:    models.ConditionGood,
		ListingState: models.ListingListed,
		ExchangeMode: models.ExchangeSell,
	}
	g.ID = id
	g.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	if mutate != nil {
		mutate(&g)
	}
	return g
}

func newTestOrchestrator(store CatalogStore) *Orchestrator {
	o := NewOrchestrator(store, matching.NewScorer(matching.DefaultWeights))
	o.RetryBackoff = time.Millisecond
	return o
}

func embeddingFor(seed float64) []float64 {
	v := make([]float64, models.EmbeddingDimension)
	for i := range v {
		v[i] = seed + float64(i%7)
	}
	return v
}

func TestDiscoverPersonalizedFeedRequiresUser(t *testing.T) {
	store := &fakeStore{garments: []models.Garment{listedGarment(1, 2, nil)}}
	o := newTestOrchestrator(store)

	_, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyPersonalizedFeed,
	})

	require.Error(t, err)
	var verr *matching.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, matching.KindUserIdRequired, verr.Kind)
	// Validation happens before any store access.
	assert.Equal(t, 0, store.calls)
}

func TestDiscoverUnknownStrategy(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{})

	_, err := o.Discover(context.Background(), matching.DiscoveryRequest{Strategy: "teleport"})

	var verr *matching.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, matching.KindInvalidStrategy, verr.Kind)
}

func TestDiscoverVisualSearchValidatesDimension(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	_, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:  matching.StrategyVisualSearch,
		Embedding: []float64{1, 2, 3},
	})

	var verr *matching.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, matching.KindInvalidEmbeddingDimension, verr.Kind)
	assert.Equal(t, 0, store.calls)
}

func TestDiscoverVisualSearchIdenticalEmbeddingRanksFirst(t *testing.T) {
	query := embeddingFor(1.5)
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 2, func(g *models.Garment) { g.Embedding = embeddingFor(40) }),
		listedGarment(2, 2, func(g *models.Garment) { g.Embedding = embeddingFor(1.5) }),
		listedGarment(3, 2, func(g *models.Garment) { g.Embedding = embeddingFor(-12) }),
	}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:  matching.StrategyVisualSearch,
		Embedding: query,
	})

	require.NoError(t, err)
	require.NotEmpty(t, result.Items)
	assert.Equal(t, uint(2), result.Items[0].ID)
	assert.Equal(t, []string{"Strong visual match"}, result.Reasons[2])
}

func TestDiscoverNewArrivalsAnonymous(t *testing.T) {
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 2, nil),
		listedGarment(2, 3, nil),
		listedGarment(3, 4, func(g *models.Garment) { g.ListingState = models.ListingUnlisted }),
	}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyNewArrivals,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	// Newest first.
	assert.Equal(t, uint(2), result.Items[0].ID)
	assert.Nil(t, result.Reasons)
}

func TestDiscoverExcludesOwnListings(t *testing.T) {
	userID := uint(7)
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 7, nil),
		listedGarment(2, 3, nil),
	}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyTrending,
		UserID:   &userID,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(2), result.Items[0].ID)
}

func TestDiscoverPaginationScenario(t *testing.T) {
	var garments []models.Garment
	for i := 1; i <= 25; i++ {
		garments = append(garments, listedGarment(uint(i), 99, nil))
	}
	store := &fakeStore{garments: garments}
	o := newTestOrchestrator(store)

	req := matching.DiscoveryRequest{
		Strategy: matching.StrategyCategory,
		Filter:   &matching.FilterSpec{Categories: []models.Category{models.CategoryTops}},
		PageSize: 10,
	}

	req.Page = 1
	page1, err := o.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.True(t, page1.HasMore)
	assert.Equal(t, 25, page1.TotalCount)

	req.Page = 3
	page3, err := o.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page3.Items, 5)
	assert.False(t, page3.HasMore)

	req.Page = 4
	page4, err := o.Discover(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, page4.Items)
	assert.False(t, page4.HasMore)
}

func TestDiscoverSimilarToUnknownGarment(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	missing := uint(404)
	_, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:  matching.StrategySimilarTo,
		GarmentID: &missing,
	})

	var nferr *matching.NotFoundError
	require.True(t, errors.As(err, &nferr))
	assert.Equal(t, "garment", nferr.Resource)
}

func TestDiscoverSimilarToExcludesReferenceAndSameOwner(t *testing.T) {
	ref := uint(1)
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 2, func(g *models.Garment) { g.Embedding = embeddingFor(3) }),
		listedGarment(2, 3, func(g *models.Garment) { g.Embedding = embeddingFor(3.1) }),
		listedGarment(3, 3, nil), // no embedding
	}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:  matching.StrategySimilarTo,
		GarmentID: &ref,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(2), result.Items[0].ID)
}

func TestDiscoverComplementaryToExcludesSameCategory(t *testing.T) {
	ref := uint(1)
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 2, func(g *models.Garment) { g.Embedding = embeddingFor(3) }),
		listedGarment(2, 3, func(g *models.Garment) { g.Embedding = embeddingFor(3) }),
		listedGarment(3, 3, func(g *models.Garment) {
			g.Category = models.CategoryBottoms
			g.Embedding = embeddingFor(3)
		}),
	}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:  matching.StrategyComplementaryTo,
		GarmentID: &ref,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(3), result.Items[0].ID)
}

func TestDiscoverStyleMatchesAttachesReasons(t *testing.T) {
	userID := uint(1)
	brand := "cos"
	store := &fakeStore{
		garments: []models.Garment{
			listedGarment(10, 2, func(g *models.Garment) {
				g.Brand = &brand
				g.Colors = []string{"black"}
				g.Sustainable = true
			}),
		},
		profiles: map[uint]*models.UserStyleProfile{
			1: {
				UserAccountID:          1,
				DominantAesthetic:      models.AestheticMinimalist,
				PreferredColors:        []string{"black"},
				PreferredBrands:        []string{"cos"},
				SizesByCategory:        map[string][]string{"tops": {"m"}},
				SustainabilityAffinity: 90,
			},
		},
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyStyleMatches,
		UserID:   &userID,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	reasons := result.Reasons[10]
	require.NotEmpty(t, reasons)
	assert.LessOrEqual(t, len(reasons), matching.MaxReasons)
}

func TestDiscoverPersonalizedFeedMissingProfileDegrades(t *testing.T) {
	userID := uint(1)
	store := &fakeStore{garments: []models.Garment{listedGarment(1, 2, nil)}}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyPersonalizedFeed,
		UserID:   &userID,
	})

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestDiscoverTextSearch(t *testing.T) {
	store := &fakeStore{garments: []models.Garment{
		listedGarment(1, 2, func(g *models.Garment) { g.Title = "Vintage denim jacket" }),
		listedGarment(2, 2, func(g *models.Garment) { g.Title = "Silk blouse" }),
	}}
	o := newTestOrchestrator(store)

	query := "denim jacket"
	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyTextSearch,
		Query:    &query,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(1), result.Items[0].ID)
}

func TestDiscoverFollowing(t *testing.T) {
	userID := uint(1)
	store := &fakeStore{
		garments: []models.Garment{
			listedGarment(1, 5, nil),
			listedGarment(2, 6, nil),
		},
		follows: map[uint][]uint{1: {5}},
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyFollowing,
		UserID:   &userID,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(1), result.Items[0].ID)
}

func TestDiscoverLocalFiltersByRadius(t *testing.T) {
	userID := uint(1)
	sydneyLat, sydneyLon := -33.8688, 151.2093
	newtownLat, newtownLon := -33.8966, 151.1793
	melbourneLat, melbourneLon := -37.8136, 144.9631
	store := &fakeStore{
		garments: []models.Garment{
			listedGarment(1, 2, func(g *models.Garment) { g.Lat = &newtownLat; g.Lon = &newtownLon }),
			listedGarment(2, 3, func(g *models.Garment) { g.Lat = &melbourneLat; g.Lon = &melbourneLon }),
			listedGarment(3, 4, nil), // no location
		},
		users: map[uint]models.UserAccount{
			1: {Lat: &sydneyLat, Lon: &sydneyLon},
		},
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyLocal,
		UserID:   &userID,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, uint(1), result.Items[0].ID)
}

func TestDiscoverCuratedPreservesEditorialOrder(t *testing.T) {
	cid := uint(1)
	store := &fakeStore{
		garments: []models.Garment{
			listedGarment(1, 2, nil),
			listedGarment(2, 2, nil),
			listedGarment(3, 2, nil),
		},
		collections: map[uint]*models.CuratedCollection{
			1: {Slug: "winter-layers", GarmentIDs: []int64{3, 1, 2}},
		},
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy:     matching.StrategyCurated,
		CollectionID: &cid,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, uint(3), result.Items[0].ID)
	assert.Equal(t, uint(1), result.Items[1].ID)
	assert.Equal(t, uint(2), result.Items[2].ID)
}

func TestDiscoverRetriesTransientStoreFailure(t *testing.T) {
	store := &fakeStore{
		garments:     []models.Garment{listedGarment(1, 2, nil)},
		failuresLeft: 2,
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyNewArrivals,
	})

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestDiscoverSurfacesPersistentStoreFailure(t *testing.T) {
	store := &fakeStore{
		garments:     []models.Garment{listedGarment(1, 2, nil)},
		failuresLeft: 10,
	}
	o := newTestOrchestrator(store)

	_, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyNewArrivals,
	})

	var uerr *matching.UpstreamError
	require.True(t, errors.As(err, &uerr))
}

func TestDiscoverTagsStaleResults(t *testing.T) {
	store := &fakeStore{
		garments: []models.Garment{listedGarment(1, 2, nil)},
		stale:    true,
	}
	o := newTestOrchestrator(store)

	result, err := o.Discover(context.Background(), matching.DiscoveryRequest{
		Strategy: matching.StrategyNewArrivals,
	})

	require.NoError(t, err)
	assert.True(t, result.PossiblyStale)
}

func TestTradeMatchesEndToEnd(t *testing.T) {
	brand := "cos"
	strong := func(g *models.Garment) {
		g.ExchangeMode = models.ExchangeTrade
		g.Brand = &brand
		g.Colors = []string{"black"}
		g.Sustainable = true
	}
	store := &fakeStore{
		garments: []models.Garment{
			listedGarment(1, 1, strong),
			listedGarment(2, 9, strong),
			listedGarment(3, 9, func(g *models.Garment) { g.ExchangeMode = models.ExchangeSell }),
		},
		users: map[uint]models.UserAccount{1: {}, 9: {}},
		profiles: map[uint]*models.UserStyleProfile{
			1: {
				DominantAesthetic:      models.AestheticMinimalist,
				PreferredColors:        []string{"black"},
				PreferredBrands:        []string{"cos"},
				SizesByCategory:        map[string][]string{"tops": {"m"}},
				SustainabilityAffinity: 80,
			},
			9: {
				DominantAesthetic:      models.AestheticMinimalist,
				PreferredColors:        []string{"black"},
				PreferredBrands:        []string{"cos"},
				SizesByCategory:        map[string][]string{"tops": {"m"}},
				SustainabilityAffinity: 80,
			},
		},
		wishlists: map[uint]map[uint]bool{1: {2: true}},
	}
	o := newTestOrchestrator(store)

	matches, stale, err := o.TradeMatches(context.Background(), 1)

	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, matches, 1)
	assert.Equal(t, uint(1), matches[0].Offered.ID)
	assert.Equal(t, uint(2), matches[0].Candidate.ID)
	assert.Contains(t, matches[0].Reasons, matching.TradeReasonWishlist)
}

func TestTradeMatchesNoTradeableGarments(t *testing.T) {
	store := &fakeStore{
		garments: []models.Garment{listedGarment(1, 1, nil)}, // sell only
	}
	o := newTestOrchestrator(store)

	matches, _, err := o.TradeMatches(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, matches)
}
