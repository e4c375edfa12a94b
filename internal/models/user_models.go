package models

import (
	"time"

	"errand-market/pkg/geo"
)

// User is an account row. The same account can act as buyer and helper;
// roles are per request, not per user. Latitude/Longitude is the stored home
// coordinate used by near_home discovery.
type User struct {
	ID         string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone,omitempty"`
	Address    string    `json:"address"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	ProfilePic *string   `json:"profile_pic,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HomeLocation returns the stored home coordinate, or nil when the user
// never picked one.
func (u *User) HomeLocation() *geo.Point {
	if u.Latitude == nil || u.Longitude == nil {
		return nil
	}
	return &geo.Point{Latitude: *u.Latitude, Longitude: *u.Longitude}
}

// SignUpRequest mirrors the registration form: every field except the
// profile picture is mandatory, including the home location.
type SignUpRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Name      string  `json:"name" validate:"required"`
	Phone     string  `json:"phone" validate:"required"`
	Address   string  `json:"address" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// SignInRequest is the password login payload.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both sign-up and sign-in.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateProfileRequest lets a user change the mutable parts of the profile.
type UpdateProfileRequest struct {
	Name      *string  `json:"name,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}
