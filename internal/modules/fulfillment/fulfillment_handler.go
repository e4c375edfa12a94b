package fulfillment

import (
	"io"
	"net/http"
	"strconv"

	"errand-market/internal/models"

	"github.com/labstack/echo/v4"
)

// maxReceiptBytes bounds the multipart receipt image size.
const maxReceiptBytes = 10 << 20

// Handler handles HTTP requests for the fulfillment workflow.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new fulfillment handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the fulfillment routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/requests/:requestId/receipt", h.UploadReceipt)
	g.POST("/requests/:requestId/complete", h.MarkCompleted)
	g.GET("/requests/:requestId/payment", h.GetPayment)
}

// UploadReceipt accepts a multipart form with the final_price field and a
// receipt file part.
func (h *Handler) UploadReceipt(c echo.Context) error {
	helperID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	finalPrice, err := strconv.ParseFloat(c.FormValue("final_price"), 64)
	if err != nil || finalPrice <= 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A positive final_price is required"})
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A receipt image is required"})
	}
	if fileHeader.Size > maxReceiptBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Message: "Receipt image is too large"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Could not read receipt image"})
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Could not read receipt image"})
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	payment, err := h.svc.MarkReceiptUploaded(c.Request().Context(), requestID, helperID, finalPrice, image, contentType)
	if err != nil {
		switch err {
		case models.ErrNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		case models.ErrForbidden:
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Only the matched helper can upload a receipt"})
		case models.ErrConflict:
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Request is not in progress"})
		case models.ErrValidationFailed:
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Final price and receipt image are required"})
		default:
			c.Logger().Error("Handler.UploadReceipt: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to upload receipt"})
		}
	}
	return c.JSON(http.StatusCreated, payment)
}

func (h *Handler) MarkCompleted(c echo.Context) error {
	actorID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	if err := h.svc.MarkCompleted(c.Request().Context(), requestID, actorID); err != nil {
		switch err {
		case models.ErrNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
		case models.ErrForbidden:
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Only the buyer or the matched helper can complete"})
		case models.ErrConflict:
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Request has no uploaded receipt yet"})
		default:
			c.Logger().Error("Handler.MarkCompleted: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to complete request"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetPayment(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	payment, err := h.svc.GetPayment(c.Request().Context(), requestID, viewerID)
	if err != nil {
		switch err {
		case models.ErrNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Payment not found"})
		case models.ErrForbidden:
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
		default:
			c.Logger().Error("Handler.GetPayment: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve payment"})
		}
	}
	return c.JSON(http.StatusOK, payment)
}
