package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modaapi/models"
	"modaapi/services"
	"modaapi/tasks"
	"modaapi/textutil"
)

type GarmentController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Story      services.StoryProvider
}

type CreateGarmentIn struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Story         *string          `json:"story" validate:"omitempty,max=2000"`
	Category      string           `json:"category" validate:"required,category"`
	Condition     string           `json:"condition" validate:"required,condition"`
	Brand         *string          `json:"brand" validate:"omitempty,max=100"`
	SizeLabel     string           `json:"size_label" validate:"max=20"`
	SizingSystem  string           `json:"sizing_system"`
	Colors        []string         `json:"colors"`
	Materials     []string         `json:"materials"`
	ExchangeMode  string           `json:"exchange_mode" validate:"required"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Source        string           `json:"source"`
	FileName      *string          `json:"file_name" validate:"omitempty,max=1000"`
	ListNow       bool             `json:"list_now"`
}

type UpdateGarmentIn struct {
	Title        *string          `json:"title" validate:"omitempty,max=200"`
	Story        *string          `json:"story" validate:"omitempty,max=2000"`
	Condition    *string          `json:"condition" validate:"omitempty,condition"`
	SizeLabel    *string          `json:"size_label" validate:"omitempty,max=20"`
	Colors       []string         `json:"colors"`
	Materials    []string         `json:"materials"`
	ExchangeMode *string          `json:"exchange_mode"`
	Price        *decimal.Decimal `json:"price"`
}

type GarmentOut struct {
	models.Garment
	ImageURL *string `json:"image_url"`
}

type GarmentCreatedResponse struct {
	GarmentOut
	UploadURL *string `json:"upload_url,omitempty"`
}

func scanExchangeMode(raw string) (models.ExchangeMode, bool) {
	mode := models.ExchangeMode(raw)
	switch mode {
	case models.ExchangeSell, models.ExchangeTrade, models.ExchangeEither:
		return mode, true
	}
	return "", false
}

func scanSource(raw string) models.Source {
	source := models.Source(raw)
	switch source {
	case models.SourceNew, models.SourceSecondhand, models.SourceVintage,
		models.SourceConsignment, models.SourceDeadstock:
		return source
	}
	return models.SourceSecondhand
}

// markProfileStale flags the style profile for recomputation and queues
// the worker. Wardrobe changes go through here.
func markProfileStale(db *gorm.DB, asynqClient *asynq.Client, userID uint) {
	result := db.Model(models.UserStyleProfile{}).Where("user_account_id = ?", userID).Update("stale", true)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return
	}
	if asynqClient == nil {
		return
	}
	task, err := tasks.NewProfileRecomputeTask(userID)
	if err != nil {
		sentry.CaptureException(err)
		return
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("profiles"))
	if err != nil {
		sentry.CaptureException(err)
		return
	}
	fmt.Printf("[Queue] Profile recompute submitted for user %v, Task ID %v\n", userID, info.ID)
}

func enqueueGarmentEmbedding(asynqClient *asynq.Client, garmentID uint) {
	if asynqClient == nil {
		return
	}
	task, err := tasks.NewGarmentEmbeddingTask(garmentID)
	if err != nil {
		sentry.CaptureException(err)
		return
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("embed"))
	if err != nil {
		sentry.CaptureException(err)
		return
	}
	fmt.Printf("[Queue] Garment %v embedding task submitted, Task ID %v\n", garmentID, info.ID)
}

func (controller *GarmentController) GarmentRoutes(g *echo.Group) {
	g.POST("", controller.CreateGarment)
	g.GET("", controller.ListMyGarments)
	g.GET("/:garmentId", controller.GetGarment)
	g.PUT("/:garmentId", controller.UpdateGarment)
	g.POST("/:garmentId/list", controller.ListForExchange)
	g.POST("/:garmentId/unlist", controller.Unlist)
	g.GET("/:garmentId/price-estimate", controller.PriceEstimate)
	g.POST("/:garmentId/story", controller.GenerateStory)
}

func (controller *GarmentController) CreateGarment(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	asynqClient, _ := c.Get("__asynqclient").(*asynq.Client)

	req := new(CreateGarmentIn)
	if err := c.Bind(req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	mode, ok := scanExchangeMode(req.ExchangeMode)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "exchange_mode must be sell, trade or either"})
	}
	if mode.IncludesSell() && (req.Price == nil || !req.Price.IsPositive()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price is required for sell listings"})
	}

	materials := textutil.CanonicalSlice(req.Materials)
	garment := models.Garment{
		Title:        req.Title,
		Story:        req.Story,
		OwnerID:      user.ID,
		Category:     models.Category(req.Category),
		Brand:        req.Brand,
		SizeLabel:    textutil.Canonical(req.SizeLabel),
		SizingSystem: models.SizingSystem(req.SizingSystem),
		Condition:    models.Condition(req.Condition),
		Colors:       textutil.CanonicalSlice(req.Colors),
		Materials:    materials,
		ExchangeMode: mode,
		Source:       scanSource(req.Source),
		Sustainable:  models.DeriveSustainable(materials),
	}
	if garment.SizingSystem == "" {
		garment.SizingSystem = models.SizingUS
	}
	if garment.Brand != nil {
		garment.Luxury = models.TierOfBrand(textutil.Canonical(*garment.Brand)) == models.BrandTierLuxury
	}
	if mode.IncludesSell() {
		garment.Price = decimal.NullDecimal{Decimal: *req.Price, Valid: true}
	}
	if req.OriginalPrice != nil {
		garment.OriginalPrice = decimal.NullDecimal{Decimal: *req.OriginalPrice, Valid: true}
	}
	if req.ListNow {
		garment.ListingState = models.ListingListed
		garment.Lat = user.Lat
		garment.Lon = user.Lon
	}

	var uploadUrl *string
	if req.FileName != nil && *req.FileName != "" {
		bucketName := services.GetEnv("R2_BUCKET_NAME", "")
		safeFileName := fmt.Sprintf("garments/%v/%s", user.ID, *req.FileName)
		url, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
		if presignErr != nil {
			log.Printf("Unable to presign garment upload for %s!, %s", user.Name, presignErr)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error while uploading your photo, please try again",
			})
		}
		garment.ImageKey = &safeFileName
		uploadUrl = &url
	}

	if err := db.Create(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to save your garment"})
	}

	enqueueGarmentEmbedding(asynqClient, garment.ID)
	markProfileStale(db, asynqClient, user.ID)

	return c.JSON(http.StatusCreated, GarmentCreatedResponse{
		GarmentOut: GarmentOut{Garment: garment},
		UploadURL:  uploadUrl,
	})
}

func (controller *GarmentController) ListMyGarments(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var garments []models.Garment
	result := db.Where("owner_id = ?", user.ID).Order("created_at desc").Find(&garments)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": populatePresignedGarmentImages(c.Request().Context(), controller.URLCache, controller.AWSService, garments),
	})
}

func (controller *GarmentController) GetGarment(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
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
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if garment.OwnerID != user.ID && !garment.IsListed() {
		return echo.ErrNotFound
	}

	if garment.OwnerID != user.ID {
		db.Create(&models.InteractionEvent{
			UserAccountID: user.ID,
			GarmentID:     garment.ID,
			Kind:          models.InteractionView,
		})
		db.Model(&garment).Update("view_count", gorm.Expr("view_count + 1"))
	}

	out := populatePresignedGarmentImages(c.Request().Context(), controller.URLCache, controller.AWSService, []models.Garment{garment})
	return c.JSON(http.StatusOK, out[0])
}

func (controller *GarmentController) UpdateGarment(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	asynqClient, _ := c.Get("__asynqclient").(*asynq.Client)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	req := new(UpdateGarmentIn)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var garment models.Garment
	result := db.Limit(1).Find(&garment, "id = ? and owner_id = ?", garmentId, user.ID)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	retitle := false
	if req.Title != nil {
		garment.Title = *req.Title
		retitle = true
	}
	if req.Story != nil {
		garment.Story = req.Story
	}
	if req.Condition != nil {
		garment.Condition = models.Condition(*req.Condition)
	}
	if req.SizeLabel != nil {
		garment.SizeLabel = textutil.Canonical(*req.SizeLabel)
	}
	if req.Colors != nil {
		garment.Colors = textutil.CanonicalSlice(req.Colors)
	}
	if req.Materials != nil {
		garment.Materials = textutil.CanonicalSlice(req.Materials)
		garment.Sustainable = models.DeriveSustainable(garment.Materials)
	}
	if req.ExchangeMode != nil {
		mode, ok := scanExchangeMode(*req.ExchangeMode)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "exchange_mode must be sell, trade or either"})
		}
		garment.ExchangeMode = mode
	}
	if req.Price != nil {
		garment.Price = decimal.NullDecimal{Decimal: *req.Price, Valid: true}
	}
	if garment.ExchangeMode.IncludesSell() && !garment.Price.Valid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price is required for sell listings"})
	}
	if !garment.ExchangeMode.IncludesSell() {
		garment.Price = decimal.NullDecimal{}
	}

	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	if retitle {
		enqueueGarmentEmbedding(asynqClient, garment.ID)
	}
	markProfileStale(db, asynqClient, user.ID)
	return c.JSON(http.StatusOK, GarmentOut{Garment: garment})
}

func (controller *GarmentController) ListForExchange(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	result := db.Limit(1).Find(&garment, "id = ? and owner_id = ?", garmentId, user.ID)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if garment.ExchangeMode.IncludesSell() && !garment.Price.Valid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "price is required for sell listings"})
	}

	garment.ListingState = models.ListingListed
	// Listing location snapshots the owner's current location.
	garment.Lat = user.Lat
	garment.Lon = user.Lon
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, GarmentOut{Garment: garment})
}

func (controller *GarmentController) Unlist(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	result := db.Model(models.Garment{}).Where(
		"id = ? and owner_id = ?", garmentId, user.ID,
	).Update("listing_state", models.ListingUnlisted)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "unlisted"})
}

func (controller *GarmentController) PriceEstimate(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	result := db.Limit(1).Find(&garment, "id = ? and owner_id = ?", garmentId, user.ID)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, services.EstimatePrice(&garment))
}

func (controller *GarmentController) GenerateStory(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	var garment models.Garment
	result := db.Limit(1).Find(&garment, "id = ? and owner_id = ?", garmentId, user.ID)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	story, err := controller.Story.GenerateStory(c.Request().Context(), &garment)
	if err != nil {
		fmt.Printf("[Garment: %v] Error generating story: %v\n", garment.ID, err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Could not write a story right now, please try again"})
	}
	garment.Story = &story
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{"story": story})
}

// populatePresignedGarmentImages enriches garments with presigned photo
// URLs concurrently, with a direct R2 failsafe for when the cache system
// itself fails.
func populatePresignedGarmentImages(ctx context.Context, urlCache services.URLCacheServiceProvider, awsService services.AWSServiceProvider, garments []models.Garment) []GarmentOut {
	if len(garments) == 0 {
		return []GarmentOut{}
	}

	var wg sync.WaitGroup
	processed := make([]GarmentOut, len(garments))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, garmentItem := range garments {
		wg.Add(1)
		go func(index int, item models.Garment) {
			defer wg.Done()

			var imageUrl string
			if item.ImageKey != nil && *item.ImageKey != "" {
				objectKey := *item.ImageKey
				url, err := urlCache.GetReadURL(ctx, objectKey)
				if err == nil {
					imageUrl = url
				} else {
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})

					fallbackUrl, fallbackErr := awsService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
					} else {
						imageUrl = fallbackUrl
					}
				}
			}
			processed[index] = GarmentOut{Garment: item}
			if imageUrl != "" {
				processed[index].ImageURL = &imageUrl
			}
		}(i, garmentItem)
	}
	wg.Wait()
	return processed
}
