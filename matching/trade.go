package matching

import (
	"math"
	"sort"

	"modaapi/models"
)

// TradeMatchThreshold is the minimum combined score for a pair to be
// surfaced at all.
const TradeMatchThreshold = 55.0

// tradeProximityKm is how close two owners must live for location to
// count as a trade reason.
const tradeProximityKm = 25.0

// TradeInput carries everything the matcher needs; it touches no store
// itself.
type TradeInput struct {
	// The requesting user's tradeable garments.
	Offered []models.Garment
	// Listed garments owned by others with trade in their exchange mode.
	Candidates []models.Garment

	UserProfile *models.UserStyleProfile
	// Profiles of candidate owners, keyed by owner id. Missing owners
	// degrade to neutral scoring for their direction.
	OwnerProfiles map[uint]*models.UserStyleProfile

	// Garment ids on the requesting user's wishlist.
	UserWishlist map[uint]bool
	// Wishlisted garment ids per candidate owner.
	OwnerWishlists map[uint]map[uint]bool

	UserLat, UserLon   *float64
	OwnerLat, OwnerLon map[uint]*float64
}

// FindTradeMatches pairs each candidate with the requesting user's
// best offered garment. Both directions are scored and combined by the
// minimum: a trade only works when it works for both sides. Results
// are ordered by score, id tie-broken.
func (s *Scorer) FindTradeMatches(in TradeInput) []TradeMatch {
	matches := make([]TradeMatch, 0, len(in.Candidates))
	for _, candidate := range in.Candidates {
		ownerProfile := in.OwnerProfiles[candidate.OwnerID]

		var best *TradeMatch
		for _, offered := range in.Offered {
			toUser, _ := s.Compatibility(in.UserProfile, &candidate)
			toOwner, _ := s.Compatibility(ownerProfile, &offered)

			combined := math.Min(toUser.Overall, toOwner.Overall)
			if combined < TradeMatchThreshold {
				continue
			}
			m := TradeMatch{
				Offered:   offered,
				Candidate: candidate,
				Score:     combined,
				Reasons:   tradeReasons(&in, &offered, &candidate, toUser, toOwner),
				Suggested: suggestedMode(&offered, &candidate),
			}
			if best == nil || m.Score > best.Score ||
				(m.Score == best.Score && m.Offered.ID < best.Offered.ID) {
				best = &m
			}
		}
		if best != nil {
			matches = append(matches, *best)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Candidate.ID < matches[j].Candidate.ID
	})
	return matches
}

func tradeReasons(in *TradeInput, offered, candidate *models.Garment, toUser, toOwner CompatibilityScore) []TradeReason {
	reasons := []TradeReason{}
	if toUser.StyleMatch >= NotableThreshold {
		reasons = append(reasons, TradeReasonStyle)
	}
	if toUser.SizeMatch >= NotableThreshold {
		reasons = append(reasons, TradeReasonSize)
	}
	if toUser.ColorMatch >= NotableThreshold {
		reasons = append(reasons, TradeReasonColor)
	}
	if toUser.BrandPreference >= NotableThreshold {
		reasons = append(reasons, TradeReasonBrand)
	}
	if offered.Category == candidate.Category {
		reasons = append(reasons, TradeReasonCategory)
	}
	if in.UserWishlist[candidate.ID] {
		reasons = append(reasons, TradeReasonWishlist)
	}
	// Mutual interest: each side wishlisted the other's garment.
	if in.UserWishlist[candidate.ID] && in.OwnerWishlists[candidate.OwnerID][offered.ID] {
		reasons = append(reasons, TradeReasonMutual)
	}
	if proximity(in, candidate.OwnerID) {
		reasons = append(reasons, TradeReasonLocation)
	}
	return reasons
}

func proximity(in *TradeInput, ownerID uint) bool {
	if in.UserLat == nil || in.UserLon == nil {
		return false
	}
	lat, lon := in.OwnerLat[ownerID], in.OwnerLon[ownerID]
	if lat == nil || lon == nil {
		return false
	}
	return HaversineKm(*in.UserLat, *in.UserLon, *lat, *lon) <= tradeProximityKm
}

// suggestedMode proposes a pure trade when both listings allow it,
// otherwise the hybrid mode.
func suggestedMode(offered, candidate *models.Garment) models.ExchangeMode {
	if offered.ExchangeMode == models.ExchangeTrade && candidate.ExchangeMode == models.ExchangeTrade {
		return models.ExchangeTrade
	}
	return models.ExchangeEither
}

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
