package chat

import (
	"net/http"

	"errand-market/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP and WebSocket traffic for request chats.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// NewHandler creates a new chat handler. clientOrigin restricts WebSocket
// upgrades; empty means same-origin checks are skipped (development).
func NewHandler(svc ServiceInterface, clientOrigin string) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return clientOrigin == "" || r.Header.Get("Origin") == clientOrigin
			},
		},
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/requests/:requestId/messages", h.Send)
	g.GET("/requests/:requestId/messages", h.Thread)
	g.POST("/requests/:requestId/messages/seen", h.MarkSeen)
	g.GET("/requests/:requestId/chat-info", h.ThreadInfo)
	g.GET("/requests/:requestId/messages/subscribe", h.Subscribe)
}

func (h *Handler) Send(c echo.Context) error {
	senderID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	msg, err := h.svc.Send(c.Request().Context(), requestID, senderID, req.Content)
	if err != nil {
		return h.writeChatError(c, err, "send message")
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *Handler) Thread(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	messages, lastSeenID, err := h.svc.Thread(c.Request().Context(), requestID, viewerID)
	if err != nil {
		return h.writeChatError(c, err, "load messages")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages":             messages,
		"last_seen_message_id": lastSeenID,
	})
}

func (h *Handler) MarkSeen(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	if err := h.svc.MarkSeen(c.Request().Context(), requestID, viewerID); err != nil {
		return h.writeChatError(c, err, "mark messages seen")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ThreadInfo(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	info, err := h.svc.ThreadInfo(c.Request().Context(), requestID, viewerID)
	if err != nil {
		return h.writeChatError(c, err, "load chat info")
	}
	return c.JSON(http.StatusOK, info)
}

// Subscribe upgrades the connection and streams message insert/update
// events until the client disconnects.
func (h *Handler) Subscribe(c echo.Context) error {
	viewerID := c.Get("userID").(string)
	requestID := c.Param("requestId")

	sub, err := h.svc.Subscribe(c.Request().Context(), requestID, viewerID)
	if err != nil {
		return h.writeChatError(c, err, "subscribe")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.svc.Unsubscribe(sub)
		return err
	}

	// Read pump: the client sends nothing meaningful; reading only detects
	// the close.
	go func() {
		defer h.svc.Unsubscribe(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Write pump: channel closes when the subscription is torn down.
	defer conn.Close()
	for ev := range sub.C {
		if err := conn.WriteJSON(ev); err != nil {
			h.svc.Unsubscribe(sub)
			break
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func (h *Handler) writeChatError(c echo.Context, err error, verb string) error {
	switch err {
	case models.ErrNotFound:
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Request not found"})
	case models.ErrForbidden:
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Only chat participants can " + verb})
	case models.ErrValidationFailed:
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Message body must not be empty"})
	default:
		c.Logger().Error("Handler.chat: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to " + verb})
	}
}
