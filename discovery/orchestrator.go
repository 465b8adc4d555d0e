package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"modaapi/matching"
	"modaapi/models"
	"modaapi/textutil"
)

// Candidate sets larger than this are scored in parallel.
const parallelScoreThreshold = 32

const defaultRadiusKm = 50.0

// visualMatchThreshold is the cosine similarity above which a visual
// search hit gets an explicit match reason.
const visualMatchThreshold = 0.7

// Orchestrator is the discovery entry point. Everything it needs comes
// in through the constructor; there is no ambient state, so a test can
// hand it a fake store and scorer.
type Orchestrator struct {
	Store  CatalogStore
	Scorer *matching.Scorer

	MaxRetries       int
	RetryBackoff     time.Duration
	ScoreConcurrency int
}

func NewOrchestrator(store CatalogStore, scorer *matching.Scorer) *Orchestrator {
	return &Orchestrator{
		Store:            store,
		Scorer:           scorer,
		MaxRetries:       2,
		RetryBackoff:     150 * time.Millisecond,
		ScoreConcurrency: 8,
	}
}

// scoreContext carries the per-request inputs the scoring stage needs.
type scoreContext struct {
	strategy   matching.Strategy
	profile    *models.UserStyleProfile
	reference  []float64
	queryTerms []string
	userLat    *float64
	userLon    *float64

	// Filled during scoring, read by the reason stage.
	compatibility map[uint]matching.CompatibilityScore
	similarity    map[uint]float64
}

// Discover runs one request through validation, candidate sourcing,
// filtering, scoring and ranking. Validation failures surface before
// any store access.
func (o *Orchestrator) Discover(ctx context.Context, req matching.DiscoveryRequest) (*matching.DiscoveryResult, error) {
	requestID := uuid.NewString()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	candidates, sc, stale, err := o.gatherCandidates(ctx, &req)
	if err != nil {
		log.Printf("[discover %s] strategy=%s failed gathering candidates: %v", requestID, req.Strategy, err)
		return nil, err
	}

	candidates = matching.ApplyFilter(candidates, req.Filter)

	scored := o.scoreCandidates(ctx, requestID, candidates, sc)

	sortBy := req.Sort
	if sortBy == "" {
		sortBy = defaultSort(req.Strategy)
	}
	page := matching.Rank(scored, sortBy, req.Order, req.Page, req.PageSize)

	result := &matching.DiscoveryResult{
		Items:         page.Items,
		TotalCount:    page.TotalCount,
		Page:          page.Page,
		HasMore:       page.HasMore,
		PossiblyStale: stale,
	}
	if req.Strategy.ComputesReasons() {
		result.Reasons = o.buildReasons(page.Items, sc)
	}
	return result, nil
}

func validateRequest(req *matching.DiscoveryRequest) error {
	known := false
	for _, s := range matching.AllStrategies {
		if s == req.Strategy {
			known = true
			break
		}
	}
	if !known {
		return &matching.ValidationError{
			Field:   "strategy",
			Kind:    matching.KindInvalidStrategy,
			Message: fmt.Sprintf("unknown strategy %q", req.Strategy),
		}
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = matching.DefaultPageSize
	}
	if req.Page < 1 || req.PageSize < 1 {
		return &matching.ValidationError{
			Field:   "page",
			Kind:    matching.KindInvalidPagination,
			Message: "page and pageSize must be positive",
		}
	}
	if req.PageSize > matching.MaxPageSize {
		req.PageSize = matching.MaxPageSize
	}

	if req.Strategy.RequiresUser() && req.UserID == nil {
		return &matching.ValidationError{
			Field:   "userId",
			Kind:    matching.KindUserIdRequired,
			Message: fmt.Sprintf("strategy %s requires a user id", req.Strategy),
		}
	}

	switch req.Strategy {
	case matching.StrategyVisualSearch:
		if err := matching.ValidateEmbedding(req.Embedding); err != nil {
			return err
		}
	case matching.StrategySimilarTo, matching.StrategyComplementaryTo:
		if req.GarmentID == nil {
			return missingParameter("garmentId", req.Strategy)
		}
	case matching.StrategyByUser:
		if req.SellerID == nil {
			return missingParameter("sellerId", req.Strategy)
		}
	case matching.StrategyCurated:
		if req.CollectionID == nil {
			return missingParameter("collectionId", req.Strategy)
		}
	case matching.StrategyAesthetic:
		if req.Aesthetic == nil {
			return missingParameter("aesthetic", req.Strategy)
		}
	case matching.StrategyTextSearch:
		if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
			return missingParameter("query", req.Strategy)
		}
	}
	return nil
}

func missingParameter(field string, strategy matching.Strategy) error {
	return &matching.ValidationError{
		Field:   field,
		Kind:    matching.KindMissingParameter,
		Message: fmt.Sprintf("strategy %s requires %s", strategy, field),
	}
}

func defaultSort(strategy matching.Strategy) matching.SortOption {
	switch strategy {
	case matching.StrategyPersonalizedFeed, matching.StrategyStyleMatches,
		matching.StrategyVisualSearch, matching.StrategySimilarTo,
		matching.StrategyComplementaryTo, matching.StrategyTextSearch,
		matching.StrategyCurated:
		return matching.SortRelevance
	case matching.StrategyTrending:
		return matching.SortPopularity
	case matching.StrategyLocal:
		return matching.SortDistance
	default:
		return matching.SortDateAdded
	}
}

// withRetry re-runs the operation on retryable upstream failures with
// exponential backoff, honoring cancellation between attempts.
func (o *Orchestrator) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := o.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return &matching.UpstreamError{Op: "retry wait", Err: ctx.Err(), Retryable: false}
			case <-time.After(backoff):
			}
		}
		err = op()
		if err == nil {
			return nil
		}
		var upstreamErr *matching.UpstreamError
		if !errors.As(err, &upstreamErr) || !upstreamErr.Retryable {
			return err
		}
	}
	return err
}

// gatherCandidates resolves the strategy to an initial candidate set
// plus the scoring inputs it implies.
func (o *Orchestrator) gatherCandidates(ctx context.Context, req *matching.DiscoveryRequest) ([]models.Garment, *scoreContext, bool, error) {
	sc := &scoreContext{
		strategy:      req.Strategy,
		compatibility: map[uint]matching.CompatibilityScore{},
		similarity:    map[uint]float64{},
	}

	// Profile-backed strategies resolve the profile first. A missing
	// profile is not fatal: scoring degrades to neutral.
	switch req.Strategy {
	case matching.StrategyPersonalizedFeed, matching.StrategyStyleMatches,
		matching.StrategyAesthetic, matching.StrategyLocal:
		if req.UserID != nil {
			profile, err := o.loadProfile(ctx, *req.UserID)
			if err != nil {
				return nil, nil, false, err
			}
			sc.profile = profile
		}
	}

	var candidates []models.Garment
	var stale bool

	switch req.Strategy {
	case matching.StrategySimilarTo, matching.StrategyComplementaryTo:
		reference, err := o.loadGarment(ctx, *req.GarmentID)
		if err != nil {
			return nil, nil, false, err
		}
		if len(reference.Embedding) == 0 {
			return nil, nil, false, &matching.ValidationError{
				Field:   "garmentId",
				Kind:    matching.KindMissingParameter,
				Message: fmt.Sprintf("garment %d has no embedding yet", reference.ID),
			}
		}
		sc.reference = reference.Embedding

		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(candidates, func(g *models.Garment) bool {
			if g.ID == reference.ID || len(g.Embedding) == 0 {
				return true
			}
			if req.Strategy == matching.StrategyComplementaryTo {
				// Complementary pieces come from other categories.
				return g.Category == reference.Category
			}
			return false
		})

	case matching.StrategyVisualSearch:
		sc.reference = req.Embedding
		var err error
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(candidates, func(g *models.Garment) bool {
			return len(g.Embedding) == 0
		})

	case matching.StrategyByUser:
		owned, err := o.loadOwnedBy(ctx, *req.SellerID)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(owned, func(g *models.Garment) bool {
			return !g.IsListed()
		})

	case matching.StrategyCurated:
		collection, garments, err := o.loadCollection(ctx, *req.CollectionID)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = garments
		// Editorial position becomes the relevance score so the
		// curator's ordering survives the ranker.
		byID := map[uint]int{}
		for i, id := range collection.GarmentIDs {
			byID[uint(id)] = i
		}
		for _, g := range candidates {
			sc.similarity[g.ID] = float64(len(byID) - byID[g.ID])
		}

	case matching.StrategyFollowing:
		sellerIDs, err := o.loadFollowed(ctx, *req.UserID)
		if err != nil {
			return nil, nil, false, err
		}
		followed := make(map[uint]bool, len(sellerIDs))
		for _, id := range sellerIDs {
			followed[id] = true
		}
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(candidates, func(g *models.Garment) bool {
			return !followed[g.OwnerID]
		})

	case matching.StrategyLocal:
		user, err := o.loadUser(ctx, *req.UserID)
		if err != nil {
			return nil, nil, false, err
		}
		if user.Lat == nil || user.Lon == nil {
			return nil, nil, false, &matching.ValidationError{
				Field:   "userId",
				Kind:    matching.KindMissingParameter,
				Message: "user has no location set",
			}
		}
		sc.userLat, sc.userLon = user.Lat, user.Lon
		radius := req.RadiusKm
		if radius <= 0 {
			radius = defaultRadiusKm
		}
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(candidates, func(g *models.Garment) bool {
			if g.Lat == nil || g.Lon == nil {
				return true
			}
			return matching.HaversineKm(*sc.userLat, *sc.userLon, *g.Lat, *g.Lon) > radius
		})

	case matching.StrategyTextSearch:
		sc.queryTerms = strings.Fields(textutil.Canonical(*req.Query))
		var err error
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		candidates = exclude(candidates, func(g *models.Garment) bool {
			return lexicalScore(g, sc.queryTerms) == 0
		})

	case matching.StrategyAesthetic:
		var err error
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
		wanted := string(*req.Aesthetic)
		candidates = exclude(candidates, func(g *models.Garment) bool {
			for _, tag := range matching.GarmentTags(g) {
				if tag == wanted {
					return false
				}
			}
			return true
		})

	default:
		// personalized_feed, new_arrivals, trending, category,
		// style_matches: the full listed catalog, narrowed by the
		// filter stage.
		var err error
		candidates, stale, err = o.loadListed(ctx)
		if err != nil {
			return nil, nil, false, err
		}
	}

	// Never show users their own listings in feed-style results.
	if req.UserID != nil && req.Strategy != matching.StrategyByUser && req.Strategy != matching.StrategyCurated {
		candidates = exclude(candidates, func(g *models.Garment) bool {
			return g.OwnerID == *req.UserID
		})
	}
	return candidates, sc, stale, nil
}

// scoreCandidates computes relevance for every candidate, in parallel
// for large sets. Degraded candidates keep their place with a neutral
// score; the page is never silently shortened.
func (o *Orchestrator) scoreCandidates(ctx context.Context, requestID string, candidates []models.Garment, sc *scoreContext) []matching.Scored {
	scored := make([]matching.Scored, len(candidates))

	var mu sync.Mutex
	scoreOne := func(i int) {
		g := &candidates[i]
		s := matching.Scored{Garment: candidates[i]}

		switch sc.strategy {
		case matching.StrategyPersonalizedFeed, matching.StrategyStyleMatches, matching.StrategyAesthetic:
			compat, err := o.Scorer.Compatibility(sc.profile, g)
			if err != nil {
				log.Printf("[discover %s] degraded candidate %d: %v", requestID, g.ID, err)
				s.Degraded = true
			}
			s.Score = compat.Overall
			mu.Lock()
			sc.compatibility[g.ID] = compat
			mu.Unlock()

		case matching.StrategySimilarTo, matching.StrategyComplementaryTo, matching.StrategyVisualSearch:
			sim, err := matching.CosineSimilarity(sc.reference, g.Embedding)
			if err != nil {
				log.Printf("[discover %s] degraded candidate %d: %v", requestID, g.ID, err)
				s.Score = matching.NeutralScore
				s.Degraded = true
			} else {
				s.Score = 100 * (sim + 1) / 2
				mu.Lock()
				sc.similarity[g.ID] = sim
				mu.Unlock()
			}

		case matching.StrategyTextSearch:
			s.Score = lexicalScore(g, sc.queryTerms)

		case matching.StrategyTrending:
			s.Score = float64(g.Popularity())

		case matching.StrategyCurated:
			s.Score = sc.similarity[g.ID]

		default:
			s.Score = matching.NeutralScore
		}

		if sc.userLat != nil && g.Lat != nil && g.Lon != nil {
			d := matching.HaversineKm(*sc.userLat, *sc.userLon, *g.Lat, *g.Lon)
			s.Distance = &d
		}
		scored[i] = s
	}

	if len(candidates) < parallelScoreThreshold {
		for i := range candidates {
			scoreOne(i)
		}
		return scored
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.ScoreConcurrency)
	for i := range candidates {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			scoreOne(i)
		}(i)
	}
	wg.Wait()
	return scored
}

func (o *Orchestrator) buildReasons(items []models.Garment, sc *scoreContext) map[uint][]string {
	reasons := map[uint][]string{}
	for _, g := range items {
		switch sc.strategy {
		case matching.StrategyStyleMatches:
			if compat, ok := sc.compatibility[g.ID]; ok {
				if r := matching.MatchReasons(compat); len(r) > 0 {
					reasons[g.ID] = r
				}
			}
		case matching.StrategyVisualSearch:
			if sim, ok := sc.similarity[g.ID]; ok && sim >= visualMatchThreshold {
				reasons[g.ID] = []string{"Strong visual match"}
			}
		}
	}
	return reasons
}

// lexicalScore counts query terms present in the garment's text
// attributes, normalized to [0, 100].
func lexicalScore(g *models.Garment, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var haystack strings.Builder
	haystack.WriteString(textutil.Canonical(g.Title))
	if g.Brand != nil {
		haystack.WriteString(" " + textutil.Canonical(*g.Brand))
	}
	if g.Story != nil {
		haystack.WriteString(" " + textutil.Canonical(*g.Story))
	}
	for _, c := range g.Colors {
		haystack.WriteString(" " + textutil.Canonical(c))
	}
	for _, m := range g.Materials {
		haystack.WriteString(" " + textutil.Canonical(m))
	}
	haystack.WriteString(" " + string(g.Category))

	text := haystack.String()
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return 100 * float64(hits) / float64(len(terms))
}

// exclude allocates a fresh slice; inputs may be shared with the
// fallback cache and must not be compacted in place.
func exclude(garments []models.Garment, drop func(*models.Garment) bool) []models.Garment {
	out := make([]models.Garment, 0, len(garments))
	for i := range garments {
		if !drop(&garments[i]) {
			out = append(out, garments[i])
		}
	}
	return out
}

// Store access helpers, each wrapped in the retry policy.

func (o *Orchestrator) loadListed(ctx context.Context) ([]models.Garment, bool, error) {
	var garments []models.Garment
	var stale bool
	err := o.withRetry(ctx, func() error {
		var opErr error
		garments, stale, opErr = o.Store.QueryListed(ctx)
		return opErr
	})
	return garments, stale, err
}

func (o *Orchestrator) loadGarment(ctx context.Context, id uint) (*models.Garment, error) {
	var garment *models.Garment
	err := o.withRetry(ctx, func() error {
		var opErr error
		garment, opErr = o.Store.GetGarment(ctx, id)
		return opErr
	})
	return garment, err
}

func (o *Orchestrator) loadOwnedBy(ctx context.Context, userID uint) ([]models.Garment, error) {
	var garments []models.Garment
	err := o.withRetry(ctx, func() error {
		var opErr error
		garments, opErr = o.Store.GarmentsOwnedBy(ctx, userID)
		return opErr
	})
	return garments, err
}

func (o *Orchestrator) loadUser(ctx context.Context, id uint) (*models.UserAccount, error) {
	var user *models.UserAccount
	err := o.withRetry(ctx, func() error {
		var opErr error
		user, opErr = o.Store.User(ctx, id)
		return opErr
	})
	return user, err
}

func (o *Orchestrator) loadFollowed(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := o.withRetry(ctx, func() error {
		var opErr error
		ids, opErr = o.Store.FollowedSellerIDs(ctx, userID)
		return opErr
	})
	return ids, err
}

func (o *Orchestrator) loadCollection(ctx context.Context, id uint) (*models.CuratedCollection, []models.Garment, error) {
	var collection *models.CuratedCollection
	err := o.withRetry(ctx, func() error {
		var opErr error
		collection, opErr = o.Store.Collection(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint, 0, len(collection.GarmentIDs))
	for _, id := range collection.GarmentIDs {
		ids = append(ids, uint(id))
	}
	var garments []models.Garment
	err = o.withRetry(ctx, func() error {
		var opErr error
		garments, opErr = o.Store.GarmentsByIDs(ctx, ids)
		return opErr
	})
	if err != nil {
		return nil, nil, err
	}
	garments = exclude(garments, func(g *models.Garment) bool {
		return !g.IsListed()
	})
	return collection, garments, nil
}

// loadProfile treats a missing profile as absent rather than fatal so
// scoring can degrade to the neutral default.
func (o *Orchestrator) loadProfile(ctx context.Context, userID uint) (*models.UserStyleProfile, error) {
	var profile *models.UserStyleProfile
	err := o.withRetry(ctx, func() error {
		var opErr error
		profile, opErr = o.Store.StyleProfile(ctx, userID)
		return opErr
	})
	if err != nil {
		var notFound *matching.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// TradeMatches is the two-sided discovery variant: both directions of
// fit are scored and combined by the weaker one.
func (o *Orchestrator) TradeMatches(ctx context.Context, userID uint) ([]matching.TradeMatch, bool, error) {
	owned, err := o.loadOwnedBy(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	offered := exclude(owned, func(g *models.Garment) bool {
		return !g.IsListed() || !g.ExchangeMode.IncludesTrade()
	})
	if len(offered) == 0 {
		return nil, false, nil
	}

	listed, stale, err := o.loadListed(ctx)
	if err != nil {
		return nil, false, err
	}
	candidates := exclude(listed, func(g *models.Garment) bool {
		return g.OwnerID == userID || !g.ExchangeMode.IncludesTrade()
	})
	if len(candidates) == 0 {
		return nil, stale, nil
	}

	ownerIDSet := map[uint]bool{}
	for i := range candidates {
		ownerIDSet[candidates[i].OwnerID] = true
	}
	ownerIDs := make([]uint, 0, len(ownerIDSet))
	for id := range ownerIDSet {
		ownerIDs = append(ownerIDs, id)
	}

	userProfile, err := o.loadProfile(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	var ownerProfiles map[uint]*models.UserStyleProfile
	err = o.withRetry(ctx, func() error {
		var opErr error
		ownerProfiles, opErr = o.Store.StyleProfilesByUserIDs(ctx, ownerIDs)
		return opErr
	})
	if err != nil {
		return nil, false, err
	}

	var owners map[uint]models.UserAccount
	err = o.withRetry(ctx, func() error {
		var opErr error
		owners, opErr = o.Store.UsersByIDs(ctx, ownerIDs)
		return opErr
	})
	if err != nil {
		return nil, false, err
	}

	var userWishlist map[uint]bool
	err = o.withRetry(ctx, func() error {
		var opErr error
		userWishlist, opErr = o.Store.WishlistGarmentIDs(ctx, userID)
		return opErr
	})
	if err != nil {
		return nil, false, err
	}

	var ownerWishlists map[uint]map[uint]bool
	err = o.withRetry(ctx, func() error {
		var opErr error
		ownerWishlists, opErr = o.Store.WishlistsByOwners(ctx, ownerIDs)
		return opErr
	})
	if err != nil {
		return nil, false, err
	}

	user, err := o.loadUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	ownerLat := map[uint]*float64{}
	ownerLon := map[uint]*float64{}
	for id, owner := range owners {
		ownerLat[id] = owner.Lat
		ownerLon[id] = owner.Lon
	}

	matches := o.Scorer.FindTradeMatches(matching.TradeInput{
		Offered:        offered,
		Candidates:     candidates,
		UserProfile:    userProfile,
		OwnerProfiles:  ownerProfiles,
		UserWishlist:   userWishlist,
		OwnerWishlists: ownerWishlists,
		UserLat:        user.Lat,
		UserLon:        user.Lon,
		OwnerLat:       ownerLat,
		OwnerLon:       ownerLon,
	})
	return matches, stale, nil
}
