package matching

import (
	"github.com/shopspring/decimal"

	"modaapi/models"
)

type Strategy string

const (
	StrategyPersonalizedFeed Strategy = "personalized_feed"
	StrategyNewArrivals      Strategy = "new_arrivals"
	StrategyTrending         Strategy = "trending"
	StrategyCategory         Strategy = "category"
	StrategyAesthetic        Strategy = "aesthetic"
	StrategySimilarTo        Strategy = "similar_to"
	StrategyComplementaryTo  Strategy = "complementary_to"
	StrategyStyleMatches     Strategy = "style_matches"
	StrategyTextSearch       Strategy = "text_search"
	StrategyVisualSearch     Strategy = "visual_search"
	StrategyLocal            Strategy = "local"
	StrategyCurated          Strategy = "curated"
	StrategyByUser           Strategy = "by_user"
	StrategyFollowing        Strategy = "following"
)

var AllStrategies = []Strategy{
	StrategyPersonalizedFeed, StrategyNewArrivals, StrategyTrending,
	StrategyCategory, StrategyAesthetic, StrategySimilarTo,
	StrategyComplementaryTo, StrategyStyleMatches, StrategyTextSearch,
	StrategyVisualSearch, StrategyLocal, StrategyCurated,
	StrategyByUser, StrategyFollowing,
}

// RequiresUser reports whether the strategy is meaningless without a
// requesting user. Checked before any store access.
func (s Strategy) RequiresUser() bool {
	switch s {
	case StrategyPersonalizedFeed, StrategyStyleMatches, StrategyFollowing, StrategyLocal:
		return true
	}
	return false
}

// ComputesReasons reports whether match reasons are attached to the
// result. Other strategies skip reason generation entirely.
func (s Strategy) ComputesReasons() bool {
	return s == StrategyStyleMatches || s == StrategyVisualSearch
}

type SortOption string

const (
	SortRelevance  SortOption = "relevance"
	SortDateAdded  SortOption = "date_added"
	SortPrice      SortOption = "price"
	SortPopularity SortOption = "popularity"
	SortDistance   SortOption = "distance"
	SortCondition  SortOption = "condition"
	SortBrand      SortOption = "brand"
)

type Direction string

const (
	OrderAsc  Direction = "asc"
	OrderDesc Direction = "desc"
)

// FilterSpec holds hard constraints. Nil / empty fields are no-ops;
// all present fields are AND-combined.
type FilterSpec struct {
	Categories []models.Category    `json:"categories"`
	Sizes      []string             `json:"sizes"`
	PriceMin   *decimal.Decimal     `json:"price_min"`
	PriceMax   *decimal.Decimal     `json:"price_max"`
	Conditions []models.Condition   `json:"conditions"`
	Colors     []string             `json:"colors"`
	Brands     []string             `json:"brands"`
	Materials  []string             `json:"materials"`
	Sources    []models.Source      `json:"sources"`
	Exchange   *models.ExchangeMode `json:"exchange_mode"`

	SustainableOnly bool `json:"sustainable_only"`
	VintageOnly     bool `json:"vintage_only"`
	LuxuryOnly      bool `json:"luxury_only"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DiscoveryRequest is the orchestrator input. UserID may be nil for
// anonymous strategies such as trending and new arrivals.
type DiscoveryRequest struct {
	UserID   *uint
	Strategy Strategy
	Page     int
	PageSize int

	Filter *FilterSpec
	Sort   SortOption
	Order  Direction

	// Strategy parameters, used only by the strategies that name them.
	GarmentID    *uint
	SellerID     *uint
	CollectionID *uint
	Aesthetic    *models.Aesthetic
	Query        *string
	Embedding    []float64
	RadiusKm     float64
}

// DiscoveryResult is one page of ranked garments. Reasons is populated
// only for the style-matches and visual-search strategies.
type DiscoveryResult struct {
	Items      []models.Garment  `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	HasMore    bool              `json:"has_more"`
	Reasons    map[uint][]string `json:"reasons,omitempty"`

	// Set when results came from the fallback cache tier after a
	// primary store failure.
	PossiblyStale bool `json:"possibly_stale,omitempty"`
}

// CompatibilityScore is produced fresh per (profile, garment) pair and
// never cached across users. All values lie in [0, 100].
type CompatibilityScore struct {
	Overall float64 `json:"overall"`

	StyleMatch              float64 `json:"style_match"`
	SizeMatch               float64 `json:"size_match"`
	ColorMatch              float64 `json:"color_match"`
	BrandPreference         float64 `json:"brand_preference"`
	SustainabilityAlignment float64 `json:"sustainability_alignment"`

	// Degraded marks candidates scored with the neutral default after
	// a profile data problem.
	Degraded bool `json:"-"`
}

type TradeReason string

const (
	TradeReasonStyle    TradeReason = "style_compatibility"
	TradeReasonSize     TradeReason = "size_match"
	TradeReasonColor    TradeReason = "color_harmony"
	TradeReasonBrand    TradeReason = "brand_preference"
	TradeReasonMutual   TradeReason = "mutual_interest"
	TradeReasonLocation TradeReason = "location_proximity"
	TradeReasonWishlist TradeReason = "wishlist_item"
	TradeReasonCategory TradeReason = "category_match"
)

// TradeMatch pairs one of the requesting user's garments with a
// candidate owned by someone else. Score is the bidirectional fit.
type TradeMatch struct {
	Offered   models.Garment      `json:"offered"`
	Candidate models.Garment      `json:"candidate"`
	Score     float64             `json:"score"`
	Reasons   []TradeReason       `json:"reasons"`
	Suggested models.ExchangeMode `json:"suggested_mode"`
}
