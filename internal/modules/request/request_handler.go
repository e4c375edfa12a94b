package request

import (
	"net/http"

	"errand-market/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for buyer request management.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new request handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the buyer-side request routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/requests", h.CreateRequest)
	g.GET("/requests/mine", h.ListMyRequests)
	g.GET("/requests/:requestId", h.GetRequest)
	g.PUT("/requests/:requestId", h.UpdateRequest)
	g.DELETE("/requests/:requestId", h.CancelRequest)
}

func (h *Handler) CreateRequest(c echo.Context) error {
	buyerID := c.Get("userID").(string)

	var req models.CreateRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	created, err := h.svc.CreateRequest(c.Request().Context(), buyerID, req)
	if err != nil {
		if err == models.ErrValidationFailed {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Latitude and longitude must be provided together"})
		}
		c.Logger().Error("Handler.CreateRequest: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to create request"})
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListMyRequests(c echo.Context) error {
	buyerID := c.Get("userID").(string)
	status := c.QueryParam("status")

	requests, err := h.svc.ListMyRequests(c.Request().Context(), buyerID, status)
	if err != nil {
		if err == models.ErrValidationFailed {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Unknown status filter"})
		}
		c.Logger().Error("Handler.ListMyRequests: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve requests"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": requests})
}

func (h *Handler) GetRequest(c echo.Context) error {
	requestID := c.Param("requestId")

	req, err := h.svc.GetRequest(c.Request().Context(), requestID)
	if err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		}
		c.Logger().Error("Handler.GetRequest: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve request"})
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) UpdateRequest(c echo.Context) error {
	buyerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	var req models.UpdateRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	if err := h.svc.UpdateRequest(c.Request().Context(), requestID, buyerID, req); err != nil {
		return h.writeMutationError(c, err, "update")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CancelRequest(c echo.Context) error {
	buyerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	if err := h.svc.CancelRequest(c.Request().Context(), requestID, buyerID); err != nil {
		return h.writeMutationError(c, err, "cancel")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) writeMutationError(c echo.Context, err error, verb string) error {
	switch err {
	case models.ErrNotFound:
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
	case models.ErrForbidden:
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "You can only " + verb + " your own requests"})
	case models.ErrConflict:
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Request is no longer pending"})
	default:
		c.Logger().Error("Handler."+verb+"Request: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to " + verb + " request"})
	}
}
