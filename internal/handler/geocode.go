package handler

import (
	"context"
	"net/http"

	"address-mapper/internal/geocoder"
	"address-mapper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GeoCodeHandler handles geocoding requests
type GeoCodeHandler struct {
	service GeoCodeService
}

// GeoCodeService interface for dependency injection
type GeoCodeService interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

// NewGeoCodeHandler creates a new geocode handler
func NewGeoCodeHandler(svc GeoCodeService) *GeoCodeHandler {
	return &GeoCodeHandler{service: svc}
}

// GeoCode handles GET /geocode requests
//
//	@Summary	Geocode a single address
//	@Tags		geocode
//	@Produce	json
//	@Param		q	query		string	true	"Free-text address"
//	@Success	200	{object}	models.Location
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/geocode [get]
func (h *GeoCodeHandler) GeoCode(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	location, err := h.service.Geocode(c.Request.Context(), query)
	if err != nil {
		if geocoder.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}
		log.Error().Err(err).Str("query", query).Msg("geocode request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, location)
}
