package user

import (
	"context"
	"errors"
	"fmt"

	"errand-market/internal/models"
	"errand-market/pkg/geo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the user repository.
type RepositoryInterface interface {
	Create(ctx context.Context, u *models.User, passwordHash string) error
	FindByEmail(ctx context.Context, email string) (*models.User, string, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error
	SetProfilePic(ctx context.Context, userID, url string) error
	HomeLocation(ctx context.Context, userID string) (*geo.Point, error)
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Create inserts an account row. A duplicate email surfaces as
// ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, u *models.User, passwordHash string) error {
	query := `
		INSERT INTO "Users" (email, password_hash, name, phone, address, latitude, longitude, profile_pic)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING user_id, created_at`
	err := r.db.QueryRow(ctx, query, u.Email, passwordHash, u.Name, u.Phone,
		u.Address, u.Latitude, u.Longitude, u.ProfilePic).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("repository.Create: %w", err)
	}
	return nil
}

const userColumns = `user_id, email, name, phone, address, latitude, longitude, profile_pic, created_at`

func scanUser(row pgx.Row, extra ...any) (*models.User, error) {
	var u models.User
	dest := []any{&u.ID, &u.Email, &u.Name, &u.Phone, &u.Address, &u.Latitude, &u.Longitude, &u.ProfilePic, &u.CreatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// FindByEmail returns the account and its password hash for credential
// checks.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, string, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM "Users" WHERE email = $1`
	var hash string
	u, err := scanUser(r.db.QueryRow(ctx, query, email), &hash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.ErrNotFound
		}
		return nil, "", fmt.Errorf("repository.FindByEmail: %w", err)
	}
	return u, hash, nil
}

// FindByID returns the account's public profile.
func (r *Repository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "Users" WHERE user_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of the update.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	query := `
		UPDATE "Users"
		SET name = COALESCE($1, name),
		    phone = COALESCE($2, phone),
		    address = COALESCE($3, address),
		    latitude = COALESCE($4, latitude),
		    longitude = COALESCE($5, longitude)
		WHERE user_id = $6`
	cmdTag, err := r.db.Exec(ctx, query, req.Name, req.Phone, req.Address, req.Latitude, req.Longitude, userID)
	if err != nil {
		return fmt.Errorf("repository.UpdateProfile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetProfilePic records an uploaded profile picture URL.
func (r *Repository) SetProfilePic(ctx context.Context, userID, url string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE "Users" SET profile_pic = $1 WHERE user_id = $2`, url, userID)
	if err != nil {
		return fmt.Errorf("repository.SetProfilePic: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// HomeLocation returns the stored home coordinate used by near_home
// discovery, or nil when the user never picked one.
func (r *Repository) HomeLocation(ctx context.Context, userID string) (*geo.Point, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.HomeLocation(), nil
}
