package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Token state errors
	ErrTokenRevoked = errors.New("token is revoked")
	ErrTokenExpired = errors.New("token has expired")

	// Session state errors
	ErrSessionInvalidated = errors.New("session invalidated")
)
