package controllers

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"modaapi/discovery"
	"modaapi/matching"
	"modaapi/models"
	"modaapi/services"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(400, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	asynqClient *asynq.Client,
	urlCache services.URLCacheServiceProvider,
	embedder services.EmbeddingProvider,
	storyService services.StoryProvider,
) *echo.Echo {

	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("condition", models.ValidateCondition)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	catalogStore, err := discovery.NewFallbackCatalogStore(discovery.NewGormCatalogStore(db))
	if err != nil {
		log.Fatalf("Failed to initialize catalog store: %v", err)
	}
	engine := discovery.NewOrchestrator(catalogStore, matching.NewScorer(matching.DefaultWeights))

	authGroup := e.Group("/auth")
	authController := AuthController{Google: googleService}
	authController.AuthRoutes(authGroup)

	marketGroup := e.Group("/market", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	marketGroup.Use(UserMiddleware)

	garmentController := GarmentController{AWSService: awsService, URLCache: urlCache, Story: storyService}
	garmentGroup := marketGroup.Group("/garments")
	garmentController.GarmentRoutes(garmentGroup)

	profileController := ProfileController{URLCache: urlCache, AWSService: awsService}
	profileGroup := marketGroup.Group("/profile")
	profileController.ProfileRoutes(profileGroup)

	alertController := AlertController{Embedder: embedder}
	alertGroup := marketGroup.Group("/alerts")
	alertController.AlertRoutes(alertGroup)

	discoveryController := DiscoveryController{Engine: engine, Embedder: embedder, URLCache: urlCache, AWSService: awsService}
	discoverGroup := e.Group("/discover", OptionalUserMiddleware)
	discoveryController.DiscoveryRoutes(discoverGroup)

	return e
}
