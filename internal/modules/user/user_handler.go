package user

import (
	"io"
	"net/http"

	"errand-market/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// maxProfilePicBytes bounds the multipart profile picture size.
const maxProfilePicBytes = 5 << 20

// Handler handles HTTP requests for accounts and sessions.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new user handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes mounts the unauthenticated auth routes.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/signup", h.SignUp)
	g.POST("/auth/signin", h.SignIn)
}

// RegisterRoutes mounts the authenticated profile routes.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.GetProfile)
	g.PUT("/me", h.UpdateProfile)
	g.POST("/me/profile-pic", h.UploadProfilePic)
}

// AuthContext copies the JWT subject into the echo context under "userID",
// the key every module handler reads.
func AuthContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or invalid token"})
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or invalid token"})
			}
			c.Set("userID", sub)
			return next(c)
		}
	}
}

func (h *Handler) SignUp(c echo.Context) error {
	var req models.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	resp, err := h.svc.SignUp(c.Request().Context(), req)
	if err != nil {
		if err == models.ErrEmailTaken {
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Email is already registered"})
		}
		c.Logger().Error("Handler.SignUp: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to sign up"})
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	resp, err := h.svc.SignIn(c.Request().Context(), req)
	if err != nil {
		if err == models.ErrInvalidCredentials {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid email or password"})
		}
		c.Logger().Error("Handler.SignIn: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to sign in"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetProfile(c echo.Context) error {
	userID := c.Get("userID").(string)

	u, err := h.svc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found"})
		}
		c.Logger().Error("Handler.GetProfile: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to load profile"})
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found"})
		}
		c.Logger().Error("Handler.UpdateProfile: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update profile"})
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UploadProfilePic(c echo.Context) error {
	userID := c.Get("userID").(string)

	fileHeader, err := c.FormFile("picture")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A picture file is required"})
	}
	if fileHeader.Size > maxProfilePicBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Message: "Picture is too large"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Could not read picture"})
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Could not read picture"})
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := h.svc.UploadProfilePic(c.Request().Context(), userID, image, contentType)
	if err != nil {
		c.Logger().Error("Handler.UploadProfilePic: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to upload picture"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"profile_pic": url})
}
