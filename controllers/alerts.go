package controllers

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modaapi/models"
	"modaapi/services"
)

type AlertController struct {
	Embedder services.EmbeddingProvider
}

type CreateAlertIn struct {
	Description         string           `json:"description" validate:"required,max=500"`
	Category            *string          `json:"category" validate:"omitempty,category"`
	MaxPrice            *decimal.Decimal `json:"max_price"`
	SimilarityThreshold *float64         `json:"similarity_threshold"`
}

func (controller *AlertController) AlertRoutes(g *echo.Group) {
	g.POST("", controller.CreateAlert)
	g.GET("", controller.ListAlerts)
	g.DELETE("/:alertId", controller.DeleteAlert)
}

func (controller *AlertController) CreateAlert(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	req := new(CreateAlertIn)
	if err := c.Bind(req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// The description is embedded once here; the worker compares new
	// listings against the stored vector.
	embedding, err := controller.Embedder.EmbedText(c.Request().Context(), req.Description)
	if err != nil {
		fmt.Printf("Alert embedding failed for user %v: %v\n", user.ID, err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "Could not process the alert description, please try again"})
	}

	alert := models.SearchAlert{
		UserAccountID:       user.ID,
		Description:         req.Description,
		Embedding:           embedding,
		SimilarityThreshold: models.DefaultAlertThreshold,
		Active:              true,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		alert.Category = &category
	}
	if req.MaxPrice != nil {
		alert.MaxPrice = decimal.NullDecimal{Decimal: *req.MaxPrice, Valid: true}
	}
	if req.SimilarityThreshold != nil && *req.SimilarityThreshold > 0 && *req.SimilarityThreshold <= 1 {
		alert.SimilarityThreshold = *req.SimilarityThreshold
	}

	if err := db.Create(&alert).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to save your alert"})
	}
	return c.JSON(http.StatusCreated, alert)
}

func (controller *AlertController) ListAlerts(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var alerts []models.SearchAlert
	result := db.Where("user_account_id = ?", user.ID).Order("created_at desc").Find(&alerts)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{"items": alerts})
}

func (controller *AlertController) DeleteAlert(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var alertId uint
	if err := echo.PathParamsBinder(c).Uint("alertId", &alertId).BindError(); err != nil {
		return echo.ErrBadRequest
	}

	result := db.Where("id = ? and user_account_id = ?", alertId, user.ID).Delete(&models.SearchAlert{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return echo.ErrInternalServerError
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}
