package models

import (
	"github.com/go-playground/validator"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// EmbeddingDimension is the fixed vector length produced by the CLIP
// inference service. Vectors of any other length are rejected.
const EmbeddingDimension = 768

type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryFootwear    Category = "footwear"
	CategoryAccessories Category = "accessories"
	CategoryActivewear  Category = "activewear"
	CategorySwimwear    Category = "swimwear"
	CategoryBags        Category = "bags"
)

var AllCategories = []Category{
	CategoryTops, CategoryBottoms, CategoryDresses, CategoryOuterwear,
	CategoryFootwear, CategoryAccessories, CategoryActivewear,
	CategorySwimwear, CategoryBags,
}

func ValidateCategory(fl validator.FieldLevel) bool {
	value := Category(fl.Field().String())
	for _, c := range AllCategories {
		if c == value {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionNewWithTags    Condition = "new_with_tags"
	ConditionNewWithoutTags Condition = "new_without_tags"
	ConditionExcellent      Condition = "excellent"
	ConditionVeryGood       Condition = "very_good"
	ConditionGood           Condition = "good"
	ConditionFair           Condition = "fair"
	ConditionVintage        Condition = "vintage"
	ConditionNeedsRepair    Condition = "needs_repair"
)

// ConditionRank orders conditions best-first for the condition sort key.
// Vintage is a parallel category rather than a strict grade; for sorting
// only it slots between fair and needs_repair.
var ConditionRank = map[Condition]int{
	ConditionNewWithTags:    0,
	ConditionNewWithoutTags: 1,
	ConditionExcellent:      2,
	ConditionVeryGood:       3,
	ConditionGood:           4,
	ConditionFair:           5,
	ConditionVintage:        6,
	ConditionNeedsRepair:    7,
}

func ValidateCondition(fl validator.FieldLevel) bool {
	_, ok := ConditionRank[Condition(fl.Field().String())]
	return ok
}

type SizingSystem string

const (
	SizingUS      SizingSystem = "us"
	SizingEU      SizingSystem = "eu"
	SizingUK      SizingSystem = "uk"
	SizingOneSize SizingSystem = "one_size"
)

type ExchangeMode string

const (
	ExchangeSell   ExchangeMode = "sell"
	ExchangeTrade  ExchangeMode = "trade"
	ExchangeEither ExchangeMode = "either"
)

func (m ExchangeMode) IncludesSell() bool {
	return m == ExchangeSell || m == ExchangeEither
}

func (m ExchangeMode) IncludesTrade() bool {
	return m == ExchangeTrade || m == ExchangeEither
}

type Source string

const (
	SourceNew         Source = "new"
	SourceSecondhand  Source = "secondhand"
	SourceVintage     Source = "vintage"
	SourceConsignment Source = "consignment"
	SourceDeadstock   Source = "deadstock"
)

type ListingState string

const (
	ListingUnlisted ListingState = "unlisted"
	ListingListed   ListingState = "listed"
)

type Garment struct {
	JsonModel
	Title        string       `json:"title"`
	Story        *string      `gorm:"type:text" json:"story"`
	Owner        UserAccount  `json:"-"`
	OwnerID      uint         `gorm:"index" json:"owner_id"`
	Category     Category     `gorm:"index" json:"category"`
	Brand        *string      `json:"brand"`
	SizeLabel    string       `json:"size_label"`
	SizingSystem SizingSystem `json:"sizing_system"`
	Condition    Condition    `json:"condition"`
	Colors       pq.StringArray `gorm:"type:text[]" json:"colors"`
	Materials    pq.StringArray `gorm:"type:text[]" json:"materials"`
	ListingState ListingState   `gorm:"index;default:unlisted" json:"listing_state"`
	ExchangeMode ExchangeMode   `gorm:"index" json:"exchange_mode"`

	// Price is present only when the exchange mode includes sell.
	Price         decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price"`
	Currency      string              `gorm:"default:AUD" json:"currency"`
	OriginalPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"original_price"`

	Source      Source `json:"source"`
	Sustainable bool   `json:"sustainable"`
	Luxury      bool   `json:"luxury"`

	Embedding pq.Float64Array `gorm:"type:float8[]" json:"-"`

	ViewCount int `gorm:"default:0" json:"view_count"`
	SaveCount int `gorm:"default:0" json:"save_count"`

	ImageKey *string `json:"-"`

	// Listing location, inherited from the owner at listing time.
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (g *Garment) IsListed() bool {
	return g.ListingState == ListingListed
}

// IsVintage treats the vintage condition and vintage provenance as one flag.
func (g *Garment) IsVintage() bool {
	return g.Condition == ConditionVintage || g.Source == SourceVintage
}

// Popularity is the engagement signal used by the trending sort;
// saves weigh more than passive views.
func (g *Garment) Popularity() int {
	return g.ViewCount + 3*g.SaveCount
}

var sustainableMaterials = []string{
	"organic cotton", "hemp", "linen", "tencel", "lyocell",
	"recycled polyester", "recycled nylon", "bamboo",
	"peace silk", "alpaca", "merino wool",
}

// DeriveSustainable computes the sustainability flag from material
// composition. Called when a listing is created or updated, never at
// query time.
func DeriveSustainable(materials []string) bool {
	for _, m := range materials {
		for _, s := range sustainableMaterials {
			if m == s {
				return true
			}
		}
	}
	return false
}
