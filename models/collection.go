package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CuratedCollection is a hand-picked set of listings surfaced by the
// curated discovery strategy. Ordering inside GarmentIDs is editorial
// and preserved.
type CuratedCollection struct {
	JsonModel
	Slug        string        `gorm:"uniqueIndex" json:"slug"`
	Title       string        `json:"title"`
	Description *string       `gorm:"type:text" json:"description"`
	CuratorID   *uint         `json:"curator_id"`
	GarmentIDs  pq.Int64Array `gorm:"type:bigint[]" json:"garment_ids"`
	Active      bool          `gorm:"default:true" json:"active"`
}

// DefaultAlertThreshold is the cosine similarity a new listing must
// reach against the alert embedding before the alert fires.
const DefaultAlertThreshold = 0.72

// SearchAlert is a standing "tell me when something like this appears"
// request. The description is embedded once at creation time; the
// worker scans recent listings against it.
type SearchAlert struct {
	JsonModel
	UserAccountID uint        `gorm:"index" json:"user_id"`
	UserAccount   UserAccount `json:"-"`

	Description string          `gorm:"type:text" json:"description"`
	Embedding   pq.Float64Array `gorm:"type:float8[]" json:"-"`

	Category *Category           `json:"category"`
	MaxPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"max_price"`

	SimilarityThreshold float64 `gorm:"default:0.72" json:"similarity_threshold"`

	Active       bool       `gorm:"default:true" json:"active"`
	MatchesFound int        `gorm:"default:0" json:"matches_found"`
	// At most one notification per day per alert.
	LastNotifiedAt *time.Time `json:"last_notified_at"`
}
