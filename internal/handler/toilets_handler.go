package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/usecase"
)

const (
	defaultZoom         = 16
	defaultRadiusMeters = 1000
)

// ToiletsHandler exposes the map retrieval core over HTTP.
type ToiletsHandler struct {
	mapUseCase usecase.MapUseCase
}

// NewToiletsHandler creates a ToiletsHandler.
func NewToiletsHandler(mapUseCase usecase.MapUseCase) *ToiletsHandler {
	return &ToiletsHandler{
		mapUseCase: mapUseCase,
	}
}

// GetRegion GET /api/toilets?bbox=w,s,e,n&zoom=z
func (h *ToiletsHandler) GetRegion(c *gin.Context) {
	bounds, ok := parseBBox(c)
	if !ok {
		return
	}

	zoom := defaultZoom
	if raw := c.Query("zoom"); raw != "" {
		z, err := strconv.Atoi(raw)
		if err != nil || z < 0 || z > 22 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "zoom must be an integer between 0 and 22",
			})
			return
		}
		zoom = z
	}

	result, err := h.mapUseCase.GetRegion(c.Request.Context(), bounds, zoom)
	if err != nil {
		h.writeRegionError(c, err)
		return
	}

	// An empty viewport is a valid, successful outcome.
	if result.Items == nil {
		result.Items = []model.MapItem{}
	}
	c.JSON(http.StatusOK, result)
}

// FindNearby GET /api/toilets/nearby?lat=&lng=&radius=
func (h *ToiletsHandler) FindNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": "Invalid lat value",
		})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": "Invalid lng value",
		})
		return
	}

	radius := defaultRadiusMeters
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "radius must be a positive integer (meters)",
			})
			return
		}
		radius = r
	}

	toilets, err := h.mapUseCase.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		h.writeRegionError(c, err)
		return
	}
	if toilets == nil {
		toilets = []model.ToiletWithDistance{}
	}
	c.JSON(http.StatusOK, gin.H{"toilets": toilets})
}

// CreateToilet POST /api/toilets
func (h *ToiletsHandler) CreateToilet(c *gin.Context) {
	var req model.CreateToiletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	toilet, err := h.mapUseCase.AddToilet(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create toilet: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, toilet)
}

// DeleteToilet DELETE /api/toilets/:id
func (h *ToiletsHandler) DeleteToilet(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_parameter",
			"message": "Toilet ID is required",
		})
		return
	}

	if err := h.mapUseCase.RemoveToilet(c.Request.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Toilet " + id + " does not exist",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to delete toilet: " + err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// CacheStats GET /api/cache/stats reports cache occupancy for operational diagnosis.
func (h *ToiletsHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.mapUseCase.Stats())
}

// writeRegionError maps the failure taxonomy to HTTP statuses. The
// "currently unavailable" signal stays distinct from an empty result.
func (h *ToiletsHandler) writeRegionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limited",
			"message": "Region was fetched too recently, retry later",
		})
	case errors.Is(err, model.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "currently_unavailable",
			"message": "The map data store is unreachable and no cached data is available",
		})
	case errors.Is(err, model.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}

// parseBBox reads the bbox query parameter (west,south,east,north).
func parseBBox(c *gin.Context) (model.BoundingBox, bool) {
	bbox := c.Query("bbox")
	if bbox == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_parameter",
			"message": "bbox parameter is required (format: west,south,east,north)",
		})
		return model.BoundingBox{}, false
	}

	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": "bbox must contain 4 coordinates: west,south,east,north",
		})
		return model.BoundingBox{}, false
	}

	values := make([]float64, 4)
	names := []string{"west", "south", "east", "north"}
	for i, raw := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "Invalid " + names[i] + " value",
			})
			return model.BoundingBox{}, false
		}
		values[i] = v
	}

	bounds, err := model.NewBoundingBox(values[0], values[1], values[2], values[3])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
		return model.BoundingBox{}, false
	}
	return bounds, true
}
