// Package common defines shared constants and sentinel errors used across
// client and server layers of dropzone. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorTooLarge     = errors.New("payload too large")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Entity-store specific errors.
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrInvalidQuery     = errors.New("invalid query")
)
