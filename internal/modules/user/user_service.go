package user

import (
	"context"
	"fmt"
	"time"

	"errand-market/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 72 * time.Hour

// UploaderInterface stores a binary object and returns its URL.
type UploaderInterface interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

// ServiceInterface defines the contract for the user service.
type ServiceInterface interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	UploadProfilePic(ctx context.Context, userID string, image []byte, contentType string) (string, error)
}

// Service implements account management. Sign-out is client-side token
// disposal; the server keeps no session state.
type Service struct {
	repo          RepositoryInterface
	uploader      UploaderInterface
	profileBucket string
	jwtSecret     []byte
}

// NewService creates a new user service.
func NewService(repo RepositoryInterface, uploader UploaderInterface, profileBucket, jwtSecret string) *Service {
	return &Service{
		repo:          repo,
		uploader:      uploader,
		profileBucket: profileBucket,
		jwtSecret:     []byte(jwtSecret),
	}
}

// issueToken mints the bearer token auth middleware checks.
func (s *Service) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("service.issueToken: %w", err)
	}
	return signed, nil
}

// SignUp registers an account. Every profile field including the home
// coordinate is mandatory at registration; the picture is uploaded
// separately.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.SignUp: hash: %w", err)
	}

	u := &models.User{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     &req.Phone,
		Address:   req.Address,
		Latitude:  &req.Latitude,
		Longitude: &req.Longitude,
	}
	if err := s.repo.Create(ctx, u, string(hash)); err != nil {
		return nil, err // ErrEmailTaken or a store failure
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *u}, nil
}

// SignIn checks the password and issues a token. A missing account and a
// wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error) {
	u, hash, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.SignIn: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *u}, nil
}

// GetProfile returns the account's profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile applies a partial profile edit and returns the fresh row.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.repo.UpdateProfile(ctx, userID, req); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID)
}

// UploadProfilePic stores the picture and records its URL on the account.
func (s *Service) UploadProfilePic(ctx context.Context, userID string, image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", models.ErrValidationFailed
	}
	key := fmt.Sprintf("%s_%s", userID, uuid.NewString())
	url, err := s.uploader.Upload(ctx, s.profileBucket, key, image, contentType)
	if err != nil {
		return "", fmt.Errorf("service.UploadProfilePic: %w", err)
	}
	if err := s.repo.SetProfilePic(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}
