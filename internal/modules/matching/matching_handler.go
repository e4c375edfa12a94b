package matching

import (
	"net/http"

	"errand-market/internal/models"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the claim protocol.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new matching handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the helper-side matching routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/requests/:requestId/accept", h.Accept)
	g.POST("/requests/:requestId/reject", h.Reject)
	g.GET("/helper/assignments", h.ListAssignments)
}

func (h *Handler) Accept(c echo.Context) error {
	helperID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	match, err := h.svc.Accept(c.Request().Context(), requestID, helperID)
	if err != nil {
		switch err {
		case models.ErrNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		case models.ErrForbidden:
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "You cannot accept your own request"})
		case models.ErrAlreadyClaimed:
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Request is no longer available"})
		case models.ErrPartialCommit:
			c.Logger().Error("Handler.Accept: partial commit on request ", requestID)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Accept could not be completed, please contact support"})
		default:
			c.Logger().Error("Handler.Accept: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to accept request"})
		}
	}
	return c.JSON(http.StatusCreated, match)
}

func (h *Handler) Reject(c echo.Context) error {
	helperID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	if err := h.svc.Reject(c.Request().Context(), requestID, helperID); err != nil {
		switch err {
		case models.ErrNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		case models.ErrForbidden:
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Only the matched helper can back out"})
		case models.ErrConflict:
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Request is not in progress"})
		default:
			c.Logger().Error("Handler.Reject: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to reject request"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	helperID := c.Get("userID").(string)

	assignments, err := h.svc.ListAssignments(c.Request().Context(), helperID)
	if err != nil {
		c.Logger().Error("Handler.ListAssignments: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to list assignments"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"assignments": assignments})
}
