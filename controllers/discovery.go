package controllers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"modaapi/discovery"
	"modaapi/matching"
	"modaapi/models"
	"modaapi/services"
)

type DiscoveryController struct {
	Engine     *discovery.Orchestrator
	Embedder   services.EmbeddingProvider
	URLCache   services.URLCacheServiceProvider
	AWSService services.AWSServiceProvider
}

type DiscoverIn struct {
	Strategy string `json:"strategy" validate:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`

	Sort  string `json:"sort"`
	Order string `json:"order"`

	Filter *matching.FilterSpec `json:"filter"`

	GarmentID    *uint   `json:"garment_id"`
	SellerID     *uint   `json:"seller_id"`
	CollectionID *uint   `json:"collection_id"`
	Aesthetic    *string `json:"aesthetic"`
	Query        *string `json:"query"`
	RadiusKm     float64 `json:"radius_km"`
}

type VisualSearchIn struct {
	ImageBase64 *string   `json:"image_base64"`
	Embedding   []float64 `json:"embedding"`
	Page        int       `json:"page"`
	PageSize    int       `json:"page_size"`

	Filter *matching.FilterSpec `json:"filter"`
}

type DiscoverOut struct {
	Items         []GarmentOut      `json:"items"`
	TotalCount    int               `json:"total_count"`
	Page          int               `json:"page"`
	HasMore       bool              `json:"has_more"`
	Reasons       map[uint][]string `json:"reasons,omitempty"`
	PossiblyStale bool              `json:"possibly_stale,omitempty"`
}

// normalizeSort maps the sort names older clients still send onto the
// sort/order pair the ranker understands.
func normalizeSort(sort string, order string) (matching.SortOption, matching.Direction) {
	switch sort {
	case "priceAsc":
		return matching.SortPrice, matching.OrderAsc
	case "priceDesc":
		return matching.SortPrice, matching.OrderDesc
	}
	return matching.SortOption(sort), matching.Direction(order)
}

func discoveryErrorResponse(c echo.Context, err error) error {
	var validationErr *matching.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error_kind": validationErr.Kind,
			"field":      validationErr.Field,
			"message":    validationErr.Message,
		})
	}
	var notFoundErr *matching.NotFoundError
	if errors.As(err, &notFoundErr) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": notFoundErr.Error()})
	}
	var upstreamErr *matching.UpstreamError
	if errors.As(err, &upstreamErr) {
		sentry.CaptureException(err)
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "Discovery is temporarily unavailable, please try again"})
	}
	sentry.CaptureException(err)
	return echo.ErrInternalServerError
}

func (controller *DiscoveryController) DiscoveryRoutes(g *echo.Group) {
	g.POST("", controller.Discover)
	g.POST("/visual", controller.VisualSearch)
	g.GET("/trades", controller.TradeMatches)
}

func (controller *DiscoveryController) Discover(c echo.Context) error {
	req := new(DiscoverIn)
	if err := c.Bind(req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	sort, order := normalizeSort(req.Sort, req.Order)
	engineReq := matching.DiscoveryRequest{
		Strategy:     matching.Strategy(req.Strategy),
		Page:         req.Page,
		PageSize:     req.PageSize,
		Filter:       req.Filter,
		Sort:         sort,
		Order:        order,
		GarmentID:    req.GarmentID,
		SellerID:     req.SellerID,
		CollectionID: req.CollectionID,
		Query:        req.Query,
		RadiusKm:     req.RadiusKm,
	}
	if req.Aesthetic != nil {
		aesthetic := models.Aesthetic(*req.Aesthetic)
		engineReq.Aesthetic = &aesthetic
	}
	if user, ok := c.Get("currentUser").(models.UserAccount); ok {
		engineReq.UserID = UIntPointer(user.ID)
	}

	result, err := controller.Engine.Discover(c.Request().Context(), engineReq)
	if err != nil {
		return discoveryErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.buildResponse(c, result))
}

func (controller *DiscoveryController) VisualSearch(c echo.Context) error {
	req := new(VisualSearchIn)
	if err := c.Bind(req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	embedding := req.Embedding
	if req.ImageBase64 != nil && *req.ImageBase64 != "" {
		imageBytes, err := base64.StdEncoding.DecodeString(*req.ImageBase64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "image_base64 is not valid base64"})
		}
		embedding, err = controller.Embedder.EmbedImage(c.Request().Context(), imageBytes)
		if err != nil {
			fmt.Printf("Visual search embedding failed: %v\n", err)
			sentry.CaptureException(err)
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "Could not analyze the image, please try again"})
		}
	}

	engineReq := matching.DiscoveryRequest{
		Strategy:  matching.StrategyVisualSearch,
		Page:      req.Page,
		PageSize:  req.PageSize,
		Filter:    req.Filter,
		Embedding: embedding,
	}
	if user, ok := c.Get("currentUser").(models.UserAccount); ok {
		engineReq.UserID = UIntPointer(user.ID)
	}

	result, err := controller.Engine.Discover(c.Request().Context(), engineReq)
	if err != nil {
		return discoveryErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.buildResponse(c, result))
}

func (controller *DiscoveryController) TradeMatches(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return echo.ErrUnauthorized
	}

	matches, stale, err := controller.Engine.TradeMatches(c.Request().Context(), user.ID)
	if err != nil {
		return discoveryErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"matches":        matches,
		"possibly_stale": stale,
	})
}

func (controller *DiscoveryController) buildResponse(c echo.Context, result *matching.DiscoveryResult) DiscoverOut {
	return DiscoverOut{
		Items:         populatePresignedGarmentImages(c.Request().Context(), controller.URLCache, controller.AWSService, result.Items),
		TotalCount:    result.TotalCount,
		Page:          result.Page,
		HasMore:       result.HasMore,
		Reasons:       result.Reasons,
		PossiblyStale: result.PossiblyStale,
	}
}
