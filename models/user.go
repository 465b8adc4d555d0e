package models

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	GoogleID string `json:"-"`

	AvatarURL string  `json:"avatar_url"`
	Bio       *string `gorm:"type:text" json:"bio"`
	Location  *string `json:"location"`
	Lat       *float64 `json:"-"`
	Lon       *float64 `json:"-"`

	// Circular-fashion participation score, recomputed on completed
	// exchanges and wardrobe growth.
	SustainabilityScore float64 `gorm:"default:0" json:"sustainability_score"`
}

type InteractionKind string

const (
	InteractionView     InteractionKind = "view"
	InteractionFavorite InteractionKind = "favorite"
	InteractionPurchase InteractionKind = "purchase"
)

// InteractionEvent feeds the style-profile builder and popularity ranking.
type InteractionEvent struct {
	JsonModel
	UserAccountID uint            `gorm:"index" json:"user_id"`
	GarmentID     uint            `gorm:"index" json:"garment_id"`
	Garment       Garment         `json:"-"`
	Kind          InteractionKind `json:"kind"`
}

type WishlistItem struct {
	JsonModel
	UserAccountID uint    `gorm:"index:idx_wishlist_user_garment,unique" json:"user_id"`
	GarmentID     uint    `gorm:"index:idx_wishlist_user_garment,unique" json:"garment_id"`
	Garment       Garment `json:"-"`
}

type Follow struct {
	JsonModel
	FollowerID uint `gorm:"index:idx_follow_pair,unique" json:"follower_id"`
	FollowedID uint `gorm:"index:idx_follow_pair,unique" json:"followed_id"`
}
