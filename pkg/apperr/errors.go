// Package apperr holds the error kinds that cross the HTTP boundary with a
// fixed status and a stable machine-readable code.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

var (
	ErrUnauthorized       = New(http.StatusUnauthorized, "authorization_required", "Request does not contain an access token.")
	ErrTokenExpired       = New(http.StatusUnauthorized, "token_expired", "The token has expired.")
	ErrInvalidToken       = New(http.StatusUnauthorized, "invalid_token", "Signature verification failed.")
	ErrTokenRevoked       = New(http.StatusUnauthorized, "token_revoked", "The token has been revoked.")
	ErrWrongTokenType     = New(http.StatusUnauthorized, "wrong_token_type", "The token is not of the expected type.")
	ErrFreshTokenRequired = New(http.StatusUnauthorized, "fresh_token_required", "The token is not fresh.")
	ErrForbidden          = New(http.StatusForbidden, "admin_required", "Admin privilege required.")
	ErrInvalidCredentials = New(http.StatusUnauthorized, "invalid_credentials", "Invalid credentials.")
	ErrDuplicateUsername  = New(http.StatusConflict, "username_taken", "A user with that username already exists.")
	ErrStorage            = New(http.StatusInternalServerError, "storage_error", "Storage is unavailable.")
)

// As returns the *Error wrapped anywhere in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
