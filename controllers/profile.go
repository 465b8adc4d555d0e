package controllers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"modaapi/models"
	"modaapi/services"
)

type ProfileController struct {
	URLCache   services.URLCacheServiceProvider
	AWSService services.AWSServiceProvider
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/style", controller.GetStyleProfile)
	g.POST("/style/refresh", controller.RefreshStyleProfile)
	g.GET("/wishlist", controller.GetWishlist)
	g.POST("/wishlist/:garmentId", controller.AddToWishlist)
	g.DELETE("/wishlist/:garmentId", controller.RemoveFromWishlist)
	g.POST("/follow/:sellerId", controller.Follow)
	g.DELETE("/follow/:sellerId", controller.Unfollow)
}

func (controller *ProfileController) GetStyleProfile(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var profile models.UserStyleProfile
	result := db.Limit(1).Find(&profile, "user_account_id = ?", user.ID)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "No style profile yet, add some garments first"})
	}
	return c.JSON(http.StatusOK, profile)
}

func (controller *ProfileController) RefreshStyleProfile(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	asynqClient, _ := c.Get("__asynqclient").(*asynq.Client)

	markProfileStale(db, asynqClient, user.ID)
	return c.JSON(http.StatusAccepted, echo.Map{"message": "Style profile refresh queued"})
}

func (controller *ProfileController) GetWishlist(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var items []models.WishlistItem
	result := db.Preload("Garment").Where("user_account_id = ?", user.ID).Order("created_at desc").Find(&items)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	garments := make([]models.Garment, 0, len(items))
	for _, item := range items {
		garments = append(garments, item.Garment)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": populatePresignedGarmentImages(c.Request().Context(), controller.URLCache, controller.AWSService, garments),
	})
}

func (controller *ProfileController) AddToWishlist(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	asynqClient, _ := c.Get("__asynqclient").(*asynq.Client)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	result := db.Limit(1).Find(&garment, "id = ?", garmentId)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 || !garment.IsListed() {
		return echo.ErrNotFound
	}
	if garment.OwnerID == user.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Cannot wishlist your own listing"})
	}

	item := models.WishlistItem{UserAccountID: user.ID, GarmentID: garmentId}
	saved := db.Where("user_account_id = ? and garment_id = ?", user.ID, garmentId).FirstOrCreate(&item)
	if saved.Error != nil {
		sentry.CaptureException(saved.Error)
		return echo.ErrInternalServerError
	}
	if saved.RowsAffected > 0 {
		db.Create(&models.InteractionEvent{
			UserAccountID: user.ID,
			GarmentID:     garmentId,
			Kind:          models.InteractionFavorite,
		})
		db.Model(&garment).Update("save_count", gorm.Expr("save_count + 1"))
		markProfileStale(db, asynqClient, user.ID)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "added", "wishlist_id": item.ID})
}

func (controller *ProfileController) RemoveFromWishlist(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	result := db.Where("user_account_id = ? and garment_id = ?", user.ID, garmentId).Delete(&models.WishlistItem{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected > 0 {
		db.Model(models.Garment{}).Where("id = ? and save_count > 0", garmentId).Update("save_count", gorm.Expr("save_count - 1"))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "removed",
		"deleted": result.RowsAffected > 0,
	})
}

func (controller *ProfileController) Follow(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var sellerId uint
	if err := echo.PathParamsBinder(c).Uint("sellerId", &sellerId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	if sellerId == user.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Cannot follow yourself"})
	}

	var seller models.UserAccount
	result := db.Limit(1).Find(&seller, "id = ?", sellerId)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	follow := models.Follow{FollowerID: user.ID, FollowedID: sellerId}
	saved := db.Where("follower_id = ? and followed_id = ?", user.ID, sellerId).FirstOrCreate(&follow)
	if saved.Error != nil {
		sentry.CaptureException(saved.Error)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "following", "follow_id": follow.ID})
}

func (controller *ProfileController) Unfollow(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var sellerId uint
	if err := echo.PathParamsBinder(c).Uint("sellerId", &sellerId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	result := db.Where("follower_id = ? and followed_id = ?", user.ID, sellerId).Delete(&models.Follow{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "unfollowed",
		"deleted": result.RowsAffected > 0,
	})
}
