package models

import "errors"

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to perform this action")
var ErrConflict = errors.New("resource state changed, operation no longer applies")
var ErrInvalidCredentials = errors.New("invalid credentials") // email or password does not match database record
var ErrEmailTaken = errors.New("email already registered")
var ErrValidationFailed = errors.New("request input failed validation")

// ErrAlreadyClaimed indicates the caller lost the accept race: the request
// left the pending state before the guarded update committed.
var ErrAlreadyClaimed = errors.New("request already claimed by another helper")

// ErrPartialCommit indicates the status flip committed but the Match insert
// failed and the compensating rollback failed too. The request row needs
// manual reconciliation.
var ErrPartialCommit = errors.New("request claim partially committed, manual reconciliation required")

// ErrorResponse is the uniform JSON error body returned by handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}
