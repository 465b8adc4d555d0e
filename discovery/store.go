package discovery

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"modaapi/matching"
	"modaapi/models"
)

// CatalogStore is the read surface the orchestrator depends on. A real
// database and a test double both satisfy it; the orchestrator never
// sees gorm directly.
type CatalogStore interface {
	// QueryListed returns every listed garment. The stale flag is set
	// by fallback tiers serving cached data after a primary failure.
	QueryListed(ctx context.Context) ([]models.Garment, bool, error)
	GetGarment(ctx context.Context, id uint) (*models.Garment, error)
	GarmentsByIDs(ctx context.Context, ids []uint) ([]models.Garment, error)
	GarmentsOwnedBy(ctx context.Context, userID uint) ([]models.Garment, error)

	User(ctx context.Context, id uint) (*models.UserAccount, error)
	UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.UserAccount, error)
	StyleProfile(ctx context.Context, userID uint) (*models.UserStyleProfile, error)
	StyleProfilesByUserIDs(ctx context.Context, userIDs []uint) (map[uint]*models.UserStyleProfile, error)

	FollowedSellerIDs(ctx context.Context, userID uint) ([]uint, error)
	Collection(ctx context.Context, id uint) (*models.CuratedCollection, error)
	WishlistGarmentIDs(ctx context.Context, userID uint) (map[uint]bool, error)
	WishlistsByOwners(ctx context.Context, ownerIDs []uint) (map[uint]map[uint]bool, error)
}

// GormCatalogStore backs CatalogStore with Postgres. Database failures
// surface as retryable UpstreamError; missing rows as NotFoundError.
type GormCatalogStore struct {
	DB *gorm.DB
}

func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{DB: db}
}

func upstream(op string, err error) error {
	return &matching.UpstreamError{Op: op, Err: err, Retryable: true}
}

func (s *GormCatalogStore) QueryListed(ctx context.Context) ([]models.Garment, bool, error) {
	var garments []models.Garment
	result := s.DB.WithContext(ctx).Model(models.Garment{}).Where(
		"listing_state = ?", models.ListingListed,
	).Find(&garments)
	if result.Error != nil {
		return nil, false, upstream("query listed garments", result.Error)
	}
	return garments, false, nil
}

func (s *GormCatalogStore) GetGarment(ctx context.Context, id uint) (*models.Garment, error) {
	var garment models.Garment
	result := s.DB.WithContext(ctx).First(&garment, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &matching.NotFoundError{Resource: "garment", ID: id}
		}
		return nil, upstream("get garment", result.Error)
	}
	return &garment, nil
}

func (s *GormCatalogStore) GarmentsByIDs(ctx context.Context, ids []uint) ([]models.Garment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var garments []models.Garment
	result := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&garments)
	if result.Error != nil {
		return nil, upstream("get garments by ids", result.Error)
	}
	return garments, nil
}

func (s *GormCatalogStore) GarmentsOwnedBy(ctx context.Context, userID uint) ([]models.Garment, error) {
	var garments []models.Garment
	result := s.DB.WithContext(ctx).Where("owner_id = ?", userID).Find(&garments)
	if result.Error != nil {
		return nil, upstream("get wardrobe", result.Error)
	}
	return garments, nil
}

func (s *GormCatalogStore) User(ctx context.Context, id uint) (*models.UserAccount, error) {
	var user models.UserAccount
	result := s.DB.WithContext(ctx).First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &matching.NotFoundError{Resource: "user", ID: id}
		}
		return nil, upstream("get user", result.Error)
	}
	return &user, nil
}

func (s *GormCatalogStore) UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.UserAccount, error) {
	out := map[uint]models.UserAccount{}
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.UserAccount
	result := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users)
	if result.Error != nil {
		return nil, upstream("get users by ids", result.Error)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *GormCatalogStore) StyleProfile(ctx context.Context, userID uint) (*models.UserStyleProfile, error) {
	var profile models.UserStyleProfile
	result := s.DB.WithContext(ctx).Where("user_account_id = ?", userID).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &matching.NotFoundError{Resource: "style profile", ID: userID}
		}
		return nil, upstream("get style profile", result.Error)
	}
	return &profile, nil
}

func (s *GormCatalogStore) StyleProfilesByUserIDs(ctx context.Context, userIDs []uint) (map[uint]*models.UserStyleProfile, error) {
	out := map[uint]*models.UserStyleProfile{}
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.UserStyleProfile
	result := s.DB.WithContext(ctx).Where("user_account_id IN ?", userIDs).Find(&profiles)
	if result.Error != nil {
		return nil, upstream("get style profiles", result.Error)
	}
	for i := range profiles {
		out[profiles[i].UserAccountID] = &profiles[i]
	}
	return out, nil
}

func (s *GormCatalogStore) FollowedSellerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	result := s.DB.WithContext(ctx).Model(models.Follow{}).Where(
		"follower_id = ?", userID,
	).Pluck("followed_id", &ids)
	if result.Error != nil {
		return nil, upstream("get followed sellers", result.Error)
	}
	return ids, nil
}

func (s *GormCatalogStore) Collection(ctx context.Context, id uint) (*models.CuratedCollection, error) {
	var collection models.CuratedCollection
	result := s.DB.WithContext(ctx).First(&collection, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &matching.NotFoundError{Resource: "collection", ID: id}
		}
		return nil, upstream("get collection", result.Error)
	}
	return &collection, nil
}

func (s *GormCatalogStore) WishlistGarmentIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	result := s.DB.WithContext(ctx).Model(models.WishlistItem{}).Where(
		"user_account_id = ?", userID,
	).Pluck("garment_id", &ids)
	if result.Error != nil {
		return nil, upstream("get wishlist", result.Error)
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *GormCatalogStore) WishlistsByOwners(ctx context.Context, ownerIDs []uint) (map[uint]map[uint]bool, error) {
	out := map[uint]map[uint]bool{}
	if len(ownerIDs) == 0 {
		return out, nil
	}
	var items []models.WishlistItem
	result := s.DB.WithContext(ctx).Where("user_account_id IN ?", ownerIDs).Find(&items)
	if result.Error != nil {
		return nil, upstream("get owner wishlists", result.Error)
	}
	for _, item := range items {
		if out[item.UserAccountID] == nil {
			out[item.UserAccountID] = map[uint]bool{}
		}
		out[item.UserAccountID][item.GarmentID] = true
	}
	return out, nil
}
