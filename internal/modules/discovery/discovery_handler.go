package discovery

import (
	"net/http"
	"strconv"

	"errand-market/internal/models"
	"errand-market/pkg/geo"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the helper discovery view.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new discovery handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the discovery routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/requests/open", h.ListOpenRequests)
}

// ListOpenRequests serves GET /requests/open?mode=near_me&lat=..&lon=..
// mode near_me requires lat/lon; near_home uses the stored home coordinate;
// anything else falls back to newest first.
func (h *Handler) ListOpenRequests(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	mode := c.QueryParam("mode")
	if mode == "" {
		mode = ModeLatest
	}

	var refPoint *geo.Point
	if mode == ModeNearMe {
		lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
		lon, lonErr := strconv.ParseFloat(c.QueryParam("lon"), 64)
		if latErr != nil || lonErr != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "mode=near_me requires lat and lon query parameters"})
		}
		refPoint = &geo.Point{Latitude: lat, Longitude: lon}
	}

	open, err := h.svc.ListOpenRequests(c.Request().Context(), viewerID, refPoint, mode)
	if err != nil {
		c.Logger().Error("Handler.ListOpenRequests: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to list open requests"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": open})
}
